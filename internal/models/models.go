package models

import (
	"time"
)

// User - The staff member operating the back office
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:50" json:"username"`
	PasswordHash string    `json:"-"`    // Never return this in JSON
	Role         string    `json:"role"` // 'admin', 'staff'
	CreatedAt    time.Time `json:"created_at"`
}

// Owner - The customer (a pet parent). Sales and invoices bill against an Owner.
type Owner struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Name       string     `gorm:"size:100" json:"name"`
	Email      string     `gorm:"size:100" json:"email"`
	Phone      string     `gorm:"size:20" json:"phone"`
	Address    string     `json:"address"`
	TaxID      string     `gorm:"size:20" json:"tax_id"` // GSTIN for business customers
	TotalSpent float64    `json:"total_spent"`
	LastVisit  *time.Time `json:"last_visit"`
	Pets       []Pet      `gorm:"foreignKey:OwnerID" json:"pets,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Pet belongs to exactly one Owner. A sale may optionally reference the pet
// the items were bought for.
type Pet struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OwnerID   uint      `gorm:"index" json:"owner_id"`
	Name      string    `gorm:"size:100" json:"name"`
	Species   string    `gorm:"size:50" json:"species"`
	Breed     string    `gorm:"size:50" json:"breed"`
	CreatedAt time.Time `json:"created_at"`
}

// Appointment - only the completion hook matters to the billing engine.
// Scheduling and conflict detection live elsewhere.
type Appointment struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	OwnerID     uint       `gorm:"index" json:"owner_id"`
	PetID       *uint      `json:"pet_id"`
	Status      string     `gorm:"size:20" json:"status"` // 'scheduled', 'completed', 'cancelled'
	ScheduledAt time.Time  `json:"scheduled_at"`
	CompletedAt *time.Time `json:"completed_at"`
	SaleID      *uint      `json:"sale_id"` // set when completion spawned a sale
	Notes       string     `json:"notes"`
	CreatedAt   time.Time  `json:"created_at"`
}

const (
	AppointmentStatusScheduled = "scheduled"
	AppointmentStatusCompleted = "completed"
	AppointmentStatusCancelled = "cancelled"
)
