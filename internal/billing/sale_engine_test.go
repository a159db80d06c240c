package billing

import (
	"errors"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/saurabhwebdev/tailtally-sub003/internal/inventory"
	"github.com/saurabhwebdev/tailtally-sub003/internal/models"
)

func TestCreateSale(t *testing.T) {
	t.Run("single line with discount and gst", func(t *testing.T) {
		db := newTestDB(t)
		owner := seedOwner(t, db)
		item := seedGSTItem(t, db, "SKU-A", 10)
		engine := NewSaleEngine(db)

		res, err := engine.CreateSale(CreateSaleInput{
			OwnerID: owner.ID,
			UserID:  1,
			Actor:   "asha",
			Items: []SaleItemInput{
				{ItemID: item.ID, Quantity: 2, Discount: 10, DiscountType: "percentage"},
			},
		})
		if err != nil {
			t.Fatalf("CreateSale() error = %v", err)
		}
		sale := res.Sale

		if !strings.HasPrefix(sale.SaleNumber, "SAL-"+time.Now().Format("200601")+"-") {
			t.Errorf("sale number = %s", sale.SaleNumber)
		}
		if sale.Subtotal != 200 || sale.TotalDiscount != 20 || sale.TotalTaxable != 180 {
			t.Errorf("totals = %v/%v/%v, want 200/20/180", sale.Subtotal, sale.TotalDiscount, sale.TotalTaxable)
		}
		if sale.TotalGST != 32.40 || sale.GrandTotal != 212.40 {
			t.Errorf("gst/grand = %v/%v, want 32.40/212.40", sale.TotalGST, sale.GrandTotal)
		}
		if sale.Status != models.SaleStatusConfirmed {
			t.Errorf("status = %s, want confirmed", sale.Status)
		}
		if sale.Payment.Status != models.PaymentStatusPending || sale.Payment.DueAmount != 212.40 {
			t.Errorf("payment = %+v, want pending with due 212.40", sale.Payment)
		}
		if len(sale.Items) != 1 {
			t.Fatalf("got %d lines, want 1", len(sale.Items))
		}
		line := sale.Items[0]
		if line.SKU != "SKU-A" || line.GSTRate != 18 || line.Total != 212.40 {
			t.Errorf("line = %+v", line)
		}

		// Stock was decremented in the same transaction.
		if q := itemQuantity(t, db, item.ID); q != 8 {
			t.Errorf("quantity = %d, want 8", q)
		}

		// Owner stats updated after commit.
		var reloaded models.Owner
		if err := db.First(&reloaded, owner.ID).Error; err != nil {
			t.Fatalf("reload owner: %v", err)
		}
		if reloaded.TotalSpent != 212.40 {
			t.Errorf("owner total_spent = %v, want 212.40", reloaded.TotalSpent)
		}
		if reloaded.LastVisit == nil {
			t.Error("owner last_visit not set")
		}
	})

	t.Run("multi-line totals are summed from rounded lines", func(t *testing.T) {
		db := newTestDB(t)
		owner := seedOwner(t, db)
		a := seedGSTItem(t, db, "SKU-A", 10)
		b := seedGSTItem(t, db, "SKU-B", 10)
		engine := NewSaleEngine(db)

		override := 33.33
		res, err := engine.CreateSale(CreateSaleInput{
			OwnerID: owner.ID,
			Actor:   "asha",
			Items: []SaleItemInput{
				{ItemID: a.ID, Quantity: 3, UnitPrice: &override},
				{ItemID: b.ID, Quantity: 1},
			},
		})
		if err != nil {
			t.Fatalf("CreateSale() error = %v", err)
		}
		sale := res.Sale
		// Line 1: 99.99 taxable, 18.00 gst, 117.99. Line 2: 100, 18, 118.
		if sale.Subtotal != 199.99 || sale.TotalGST != 36 || sale.GrandTotal != 235.99 {
			t.Errorf("subtotal/gst/grand = %v/%v/%v, want 199.99/36/235.99", sale.Subtotal, sale.TotalGST, sale.GrandTotal)
		}
	})

	t.Run("insufficient stock rolls everything back", func(t *testing.T) {
		db := newTestDB(t)
		owner := seedOwner(t, db)
		a := seedGSTItem(t, db, "SKU-A", 10)
		b := seedGSTItem(t, db, "SKU-B", 1)
		engine := NewSaleEngine(db)

		_, err := engine.CreateSale(CreateSaleInput{
			OwnerID: owner.ID,
			Actor:   "asha",
			Items: []SaleItemInput{
				{ItemID: a.ID, Quantity: 2},
				{ItemID: b.ID, Quantity: 5},
			},
		})
		if !errors.Is(err, inventory.ErrInsufficientStock) {
			t.Fatalf("CreateSale() error = %v, want ErrInsufficientStock", err)
		}

		// No sale, no decrement, no movements.
		var sales int64
		db.Model(&models.Sale{}).Count(&sales)
		if sales != 0 {
			t.Errorf("sales = %d, want 0", sales)
		}
		if q := itemQuantity(t, db, a.ID); q != 10 {
			t.Errorf("item A quantity = %d, want 10", q)
		}
		var movements int64
		db.Model(&models.StockMovement{}).Count(&movements)
		if movements != 0 {
			t.Errorf("movements = %d, want 0", movements)
		}
	})

	t.Run("empty cart", func(t *testing.T) {
		db := newTestDB(t)
		engine := NewSaleEngine(db)
		if _, err := engine.CreateSale(CreateSaleInput{OwnerID: 1}); !errors.Is(err, ErrEmptySale) {
			t.Errorf("CreateSale() error = %v, want ErrEmptySale", err)
		}
	})

	t.Run("unknown owner", func(t *testing.T) {
		db := newTestDB(t)
		item := seedGSTItem(t, db, "SKU-A", 5)
		engine := NewSaleEngine(db)
		_, err := engine.CreateSale(CreateSaleInput{
			OwnerID: 404,
			Items:   []SaleItemInput{{ItemID: item.ID, Quantity: 1}},
		})
		if !errors.Is(err, ErrOwnerNotFound) {
			t.Errorf("CreateSale() error = %v, want ErrOwnerNotFound", err)
		}
	})

	t.Run("pet of another owner is rejected", func(t *testing.T) {
		db := newTestDB(t)
		owner := seedOwner(t, db)
		other := models.Owner{Name: "Rahul"}
		if err := db.Create(&other).Error; err != nil {
			t.Fatalf("seed owner: %v", err)
		}
		strayPet := seedPet(t, db, other.ID)
		item := seedGSTItem(t, db, "SKU-A", 5)
		engine := NewSaleEngine(db)

		_, err := engine.CreateSale(CreateSaleInput{
			OwnerID: owner.ID,
			PetID:   &strayPet.ID,
			Items:   []SaleItemInput{{ItemID: item.ID, Quantity: 1}},
		})
		if !errors.Is(err, ErrPetMismatch) {
			t.Errorf("CreateSale() error = %v, want ErrPetMismatch", err)
		}
	})

	t.Run("pet sale stamps the pet on the movement", func(t *testing.T) {
		db := newTestDB(t)
		owner := seedOwner(t, db)
		pet := seedPet(t, db, owner.ID)
		item := seedGSTItem(t, db, "SKU-A", 5)
		engine := NewSaleEngine(db)

		res, err := engine.CreateSale(CreateSaleInput{
			OwnerID: owner.ID,
			PetID:   &pet.ID,
			Actor:   "asha",
			Items:   []SaleItemInput{{ItemID: item.ID, Quantity: 1}},
		})
		if err != nil {
			t.Fatalf("CreateSale() error = %v", err)
		}

		var m models.StockMovement
		if err := db.Where("item_id = ?", item.ID).First(&m).Error; err != nil {
			t.Fatalf("load movement: %v", err)
		}
		if m.PetID == nil || *m.PetID != pet.ID {
			t.Errorf("movement pet_id = %v, want %d", m.PetID, pet.ID)
		}
		if m.Reference != res.Sale.SaleNumber {
			t.Errorf("movement reference = %s, want %s", m.Reference, res.Sale.SaleNumber)
		}
	})

	t.Run("inactive item is rejected", func(t *testing.T) {
		db := newTestDB(t)
		owner := seedOwner(t, db)
		item := seedGSTItem(t, db, "SKU-A", 5)
		db.Model(&item).Update("is_active", false)
		engine := NewSaleEngine(db)

		_, err := engine.CreateSale(CreateSaleInput{
			OwnerID: owner.ID,
			Items:   []SaleItemInput{{ItemID: item.ID, Quantity: 1}},
		})
		if !errors.Is(err, inventory.ErrInactiveItem) {
			t.Errorf("CreateSale() error = %v, want ErrInactiveItem", err)
		}
	})

	t.Run("numbers increment within the month", func(t *testing.T) {
		db := newTestDB(t)
		owner := seedOwner(t, db)
		item := seedGSTItem(t, db, "SKU-A", 10)
		engine := NewSaleEngine(db)

		month := time.Now().Format("200601")
		for i, want := range []string{"SAL-" + month + "-0001", "SAL-" + month + "-0002"} {
			res, err := engine.CreateSale(CreateSaleInput{
				OwnerID: owner.ID,
				Items:   []SaleItemInput{{ItemID: item.ID, Quantity: 1}},
			})
			if err != nil {
				t.Fatalf("sale %d: %v", i, err)
			}
			if res.Sale.SaleNumber != want {
				t.Errorf("sale %d number = %s, want %s", i, res.Sale.SaleNumber, want)
			}
		}
	})
}

func TestCreateSaleNumberCollisionRetry(t *testing.T) {
	db := newTestDB(t)
	owner := seedOwner(t, db)
	item := seedGSTItem(t, db, "SKU-A", 10)

	// Fail the first sale insert the way a lost unique-index race does. The
	// engine must roll the whole transaction back and rerun it, not retry the
	// insert inside the aborted transaction.
	failed := false
	err := db.Callback().Create().Before("gorm:create").Register("sale_dup_once", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Dest.(*models.Sale); ok && !failed {
			failed = true
			tx.AddError(gorm.ErrDuplicatedKey)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	res, err := NewSaleEngine(db).CreateSale(CreateSaleInput{
		OwnerID: owner.ID,
		Actor:   "asha",
		Items:   []SaleItemInput{{ItemID: item.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("CreateSale() error = %v", err)
	}
	if !failed {
		t.Fatal("forced duplicate never fired")
	}
	if res.Sale.SaleNumber != "SAL-"+time.Now().Format("200601")+"-0001" {
		t.Errorf("sale number = %s, want first number of the month", res.Sale.SaleNumber)
	}

	// The aborted attempt left nothing behind.
	var sales int64
	db.Model(&models.Sale{}).Count(&sales)
	if sales != 1 {
		t.Errorf("sales = %d, want 1", sales)
	}
	if q := itemQuantity(t, db, item.ID); q != 8 {
		t.Errorf("quantity = %d, want 8 (decremented exactly once)", q)
	}
	var movements int64
	db.Model(&models.StockMovement{}).Count(&movements)
	if movements != 1 {
		t.Errorf("movements = %d, want 1", movements)
	}
}

func TestFullyDiscountedSale(t *testing.T) {
	db := newTestDB(t)
	owner := seedOwner(t, db)
	item := seedGSTItem(t, db, "SKU-A", 5)

	res, err := NewSaleEngine(db).CreateSale(CreateSaleInput{
		OwnerID: owner.ID,
		Items: []SaleItemInput{
			{ItemID: item.ID, Quantity: 1, Discount: 100, DiscountType: "percentage"},
		},
	})
	if err != nil {
		t.Fatalf("CreateSale() error = %v", err)
	}
	sale := res.Sale
	if sale.GrandTotal != 0 || sale.TotalDiscount != 100 {
		t.Errorf("grand/discount = %v/%v, want 0/100", sale.GrandTotal, sale.TotalDiscount)
	}
	// Nothing is owed on a free sale, so it is settled from the start.
	if sale.Payment.Status != models.PaymentStatusPaid || sale.Payment.DueAmount != 0 {
		t.Errorf("payment = %+v, want paid with due 0", sale.Payment)
	}

	engine := NewInvoiceEngine(db)
	invoice, err := engine.GenerateInvoice(GenerateInvoiceInput{SaleID: sale.ID})
	if err != nil {
		t.Fatalf("GenerateInvoice() error = %v", err)
	}
	if invoice.FinalAmount != 0 || invoice.Payment.Status != models.PaymentStatusPaid {
		t.Errorf("invoice = final %v status %s, want 0/paid", invoice.FinalAmount, invoice.Payment.Status)
	}
	// Settled invoices cannot be cancelled, free ones included.
	if _, err := engine.CancelInvoice(invoice.ID); !errors.Is(err, ErrAlreadyPaid) {
		t.Errorf("CancelInvoice() error = %v, want ErrAlreadyPaid", err)
	}
}

func TestCreateSalePayment(t *testing.T) {
	newSale := func(t *testing.T, payment *PaymentInput) (*CreateSaleResult, error) {
		db := newTestDB(t)
		owner := seedOwner(t, db)
		item := seedGSTItem(t, db, "SKU-A", 10)
		engine := NewSaleEngine(db)
		return engine.CreateSale(CreateSaleInput{
			OwnerID: owner.ID,
			Items:   []SaleItemInput{{ItemID: item.ID, Quantity: 1}}, // grand total 118
			Payment: payment,
		})
	}

	t.Run("full payment", func(t *testing.T) {
		res, err := newSale(t, &PaymentInput{Method: "upi", PaidAmount: 118, TransactionID: "upi-123"})
		if err != nil {
			t.Fatalf("CreateSale() error = %v", err)
		}
		p := res.Sale.Payment
		if p.Status != models.PaymentStatusPaid || p.PaidAmount != 118 || p.DueAmount != 0 {
			t.Errorf("payment = %+v, want paid 118 due 0", p)
		}
		if p.TransactionID != "upi-123" || p.PaidAt == nil {
			t.Errorf("payment = %+v, want transaction id and paid_at set", p)
		}
		if res.ChangeAmount != 0 {
			t.Errorf("change = %v, want 0", res.ChangeAmount)
		}
	})

	t.Run("partial payment", func(t *testing.T) {
		res, err := newSale(t, &PaymentInput{Method: "cash", PaidAmount: 50})
		if err != nil {
			t.Fatalf("CreateSale() error = %v", err)
		}
		p := res.Sale.Payment
		if p.Status != models.PaymentStatusPartial || p.PaidAmount != 50 || p.DueAmount != 68 {
			t.Errorf("payment = %+v, want partial 50 due 68", p)
		}
	})

	t.Run("overpayment returns change and caps paid", func(t *testing.T) {
		res, err := newSale(t, &PaymentInput{Method: "cash", PaidAmount: 150})
		if err != nil {
			t.Fatalf("CreateSale() error = %v", err)
		}
		p := res.Sale.Payment
		if p.PaidAmount != 118 || p.DueAmount != 0 || p.Status != models.PaymentStatusPaid {
			t.Errorf("payment = %+v, want paid capped at 118", p)
		}
		if res.ChangeAmount != 32 {
			t.Errorf("change = %v, want 32", res.ChangeAmount)
		}
	})

	t.Run("no payment defaults to pending cash", func(t *testing.T) {
		res, err := newSale(t, nil)
		if err != nil {
			t.Fatalf("CreateSale() error = %v", err)
		}
		p := res.Sale.Payment
		if p.Method != "cash" || p.Status != models.PaymentStatusPending || p.DueAmount != 118 {
			t.Errorf("payment = %+v, want pending cash due 118", p)
		}
		if p.PaidAt != nil {
			t.Error("paid_at set on an unpaid sale")
		}
	})
}

func TestCancelSale(t *testing.T) {
	setup := func(t *testing.T) (*SaleEngine, *models.Sale, models.InventoryItem, *gorm.DB) {
		db := newTestDB(t)
		owner := seedOwner(t, db)
		item := seedGSTItem(t, db, "SKU-A", 10)
		engine := NewSaleEngine(db)
		res, err := engine.CreateSale(CreateSaleInput{
			OwnerID: owner.ID,
			Actor:   "asha",
			Items:   []SaleItemInput{{ItemID: item.ID, Quantity: 3}},
		})
		if err != nil {
			t.Fatalf("seed sale: %v", err)
		}
		return engine, res.Sale, item, db
	}

	t.Run("cancel restores stock with a compensating movement", func(t *testing.T) {
		engine, sale, item, db := setup(t)

		got, err := engine.CancelSale(sale.ID, "asha")
		if err != nil {
			t.Fatalf("CancelSale() error = %v", err)
		}
		if got.Status != models.SaleStatusCancelled {
			t.Errorf("status = %s, want cancelled", got.Status)
		}
		if q := itemQuantity(t, db, item.ID); q != 10 {
			t.Errorf("quantity = %d, want 10 restored", q)
		}

		var movements []models.StockMovement
		db.Where("item_id = ?", item.ID).Order("id").Find(&movements)
		if len(movements) != 2 {
			t.Fatalf("movements = %d, want 2 (sale + restore)", len(movements))
		}
		if movements[1].Delta != 3 || movements[1].Reference != sale.SaleNumber {
			t.Errorf("restore movement = %+v", movements[1])
		}
	})

	t.Run("cancelling twice fails", func(t *testing.T) {
		engine, sale, _, _ := setup(t)
		if _, err := engine.CancelSale(sale.ID, "asha"); err != nil {
			t.Fatalf("first cancel: %v", err)
		}
		if _, err := engine.CancelSale(sale.ID, "asha"); !errors.Is(err, ErrTargetCancelled) {
			t.Errorf("second cancel error = %v, want ErrTargetCancelled", err)
		}
	})

	t.Run("delivered sales are final", func(t *testing.T) {
		engine, sale, _, _ := setup(t)
		if _, err := engine.MarkDelivered(sale.ID); err != nil {
			t.Fatalf("deliver: %v", err)
		}
		if _, err := engine.CancelSale(sale.ID, "asha"); !errors.Is(err, ErrAlreadyDelivered) {
			t.Errorf("CancelSale() error = %v, want ErrAlreadyDelivered", err)
		}
	})

	t.Run("unknown sale", func(t *testing.T) {
		db := newTestDB(t)
		engine := NewSaleEngine(db)
		if _, err := engine.CancelSale(999, "asha"); !errors.Is(err, ErrSaleNotFound) {
			t.Errorf("CancelSale() error = %v, want ErrSaleNotFound", err)
		}
	})
}

func TestMarkDelivered(t *testing.T) {
	db := newTestDB(t)
	owner := seedOwner(t, db)
	item := seedGSTItem(t, db, "SKU-A", 5)
	engine := NewSaleEngine(db)
	res, err := engine.CreateSale(CreateSaleInput{
		OwnerID: owner.ID,
		Items:   []SaleItemInput{{ItemID: item.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("seed sale: %v", err)
	}

	got, err := engine.MarkDelivered(res.Sale.ID)
	if err != nil {
		t.Fatalf("MarkDelivered() error = %v", err)
	}
	if got.Status != models.SaleStatusDelivered {
		t.Errorf("status = %s, want delivered", got.Status)
	}

	if _, err := engine.CancelSale(res.Sale.ID, "asha"); !errors.Is(err, ErrAlreadyDelivered) {
		t.Errorf("cancel after deliver error = %v, want ErrAlreadyDelivered", err)
	}
}

func TestCompleteAppointmentWithSale(t *testing.T) {
	t.Run("with items spawns a sale", func(t *testing.T) {
		db := newTestDB(t)
		owner := seedOwner(t, db)
		pet := seedPet(t, db, owner.ID)
		item := seedGSTItem(t, db, "SKU-A", 5)
		appt := models.Appointment{
			OwnerID:     owner.ID,
			PetID:       &pet.ID,
			Status:      models.AppointmentStatusScheduled,
			ScheduledAt: time.Now(),
		}
		if err := db.Create(&appt).Error; err != nil {
			t.Fatalf("seed appointment: %v", err)
		}
		engine := NewSaleEngine(db)

		gotAppt, res, err := engine.CompleteAppointmentWithSale(appt.ID, 1, "asha",
			[]SaleItemInput{{ItemID: item.ID, Quantity: 2}}, nil, "post-grooming shampoo")
		if err != nil {
			t.Fatalf("CompleteAppointmentWithSale() error = %v", err)
		}
		if gotAppt.Status != models.AppointmentStatusCompleted || gotAppt.CompletedAt == nil {
			t.Errorf("appointment = %+v, want completed", gotAppt)
		}
		if res == nil || gotAppt.SaleID == nil || *gotAppt.SaleID != res.Sale.ID {
			t.Errorf("appointment sale link = %v, sale = %v", gotAppt.SaleID, res)
		}
		if res.Sale.PetID == nil || *res.Sale.PetID != pet.ID {
			t.Errorf("sale pet = %v, want %d", res.Sale.PetID, pet.ID)
		}
		if q := itemQuantity(t, db, item.ID); q != 3 {
			t.Errorf("quantity = %d, want 3", q)
		}
	})

	t.Run("without items just completes", func(t *testing.T) {
		db := newTestDB(t)
		owner := seedOwner(t, db)
		appt := models.Appointment{OwnerID: owner.ID, Status: models.AppointmentStatusScheduled, ScheduledAt: time.Now()}
		if err := db.Create(&appt).Error; err != nil {
			t.Fatalf("seed appointment: %v", err)
		}
		engine := NewSaleEngine(db)

		gotAppt, res, err := engine.CompleteAppointmentWithSale(appt.ID, 1, "asha", nil, nil, "")
		if err != nil {
			t.Fatalf("CompleteAppointmentWithSale() error = %v", err)
		}
		if res != nil {
			t.Errorf("res = %+v, want nil sale", res)
		}
		if gotAppt.Status != models.AppointmentStatusCompleted {
			t.Errorf("status = %s, want completed", gotAppt.Status)
		}
	})

	t.Run("cancelled appointment is rejected", func(t *testing.T) {
		db := newTestDB(t)
		owner := seedOwner(t, db)
		appt := models.Appointment{OwnerID: owner.ID, Status: models.AppointmentStatusCancelled, ScheduledAt: time.Now()}
		if err := db.Create(&appt).Error; err != nil {
			t.Fatalf("seed appointment: %v", err)
		}
		engine := NewSaleEngine(db)

		if _, _, err := engine.CompleteAppointmentWithSale(appt.ID, 1, "asha", nil, nil, ""); !errors.Is(err, ErrTargetCancelled) {
			t.Errorf("error = %v, want ErrTargetCancelled", err)
		}
	})

	t.Run("unknown appointment", func(t *testing.T) {
		db := newTestDB(t)
		engine := NewSaleEngine(db)
		if _, _, err := engine.CompleteAppointmentWithSale(77, 1, "asha", nil, nil, ""); !errors.Is(err, ErrAppointmentNotFound) {
			t.Errorf("error = %v, want ErrAppointmentNotFound", err)
		}
	})
}
