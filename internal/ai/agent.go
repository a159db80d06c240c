package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/saurabhwebdev/tailtally-sub003/internal/database"
	"github.com/saurabhwebdev/tailtally-sub003/internal/inventory"
	"github.com/saurabhwebdev/tailtally-sub003/internal/models"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// RunAgent answers back-office questions with tool access to the inventory
// and sales reports. actor is stamped onto any stock movement the agent makes.
func RunAgent(userMessage, apiKey, actor string) (string, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return "", err
	}
	defer client.Close()

	model := client.GenerativeModel("gemini-2.0-flash-001")

	today := time.Now().Format("2006-01-02")

	systemPrompt := fmt.Sprintf(`SYSTEM: Today is %s. You are the back-office assistant of a pet supply shop.

	RULES:
	1. READ: If a user asks for PRICE, STOCK, SKU or DETAILS of an item:
	   - You MUST call 'check_inventory' to get the full list.
	   - Then read the JSON to find the specific item and answer the user.
	2. STOCK: If a user asks to receive stock or correct a count by item NAME, do NOT ask for the ID. Instead:
	   - Call 'check_inventory' to find the ID.
	   - Call 'adjust_stock' using that ID. Positive delta adds stock, negative removes it.
	3. SALES: If the user asks for sales, revenue or GST collected, use 'get_sales_report'.

	USER: %s`, today, userMessage)

	model.Tools = []*genai.Tool{
		{
			FunctionDeclarations: []*genai.FunctionDeclaration{
				{
					Name:        "check_inventory",
					Description: "Get the full inventory list. Use this to find ANY item details like ID, Name, SKU, Price or Stock.",
				},
				{
					Name:        "adjust_stock",
					Description: "Adjust the stock level of an item by a signed delta (purchases and corrections, never sales)",
					Parameters: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"item_id": {Type: genai.TypeInteger, Description: "ID of the item"},
							"delta":   {Type: genai.TypeInteger, Description: "Signed quantity change"},
							"note":    {Type: genai.TypeString, Description: "Why the stock changed"},
						},
						Required: []string{"item_id", "delta"},
					},
				},
				{
					Name:        "get_sales_report",
					Description: "Get total sales revenue, GST collected and order count for a date range.",
					Parameters: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"start_date": {Type: genai.TypeString, Description: "Start date (YYYY-MM-DD)"},
							"end_date":   {Type: genai.TypeString, Description: "End date (YYYY-MM-DD)"},
						},
						Required: []string{"start_date", "end_date"},
					},
				},
			},
		},
	}

	session := model.StartChat()

	resp, err := session.SendMessage(ctx, genai.Text(systemPrompt))
	if err != nil {
		return "", err
	}

	// --- HANDLE TOOL CALLS ---
	for _, part := range resp.Candidates[0].Content.Parts {
		if funcCall, ok := part.(genai.FunctionCall); ok {
			switch funcCall.Name {
			case "check_inventory":
				return executeCheckInventory(ctx, session, actor)
			case "adjust_stock":
				return executeAdjustStock(ctx, session, funcCall, actor), nil
			case "get_sales_report":
				return executeSalesReport(ctx, session, funcCall), nil
			}
		}
	}

	return printResponse(resp), nil
}

// --- HELPER FUNCTIONS ---

func executeCheckInventory(ctx context.Context, session *genai.ChatSession, actor string) (string, error) {
	var items []models.InventoryItem
	database.DB.Where("is_active = ?", true).Find(&items)

	type SimpleItem struct {
		ID    uint    `json:"id"`
		Name  string  `json:"name"`
		SKU   string  `json:"sku"`
		Stock int     `json:"stock"`
		Price float64 `json:"price"`
	}
	var simpleList []SimpleItem
	for _, item := range items {
		simpleList = append(simpleList, SimpleItem{
			ID:    item.ID,
			Name:  item.Name,
			SKU:   item.SKU,
			Stock: item.Quantity,
			Price: item.UnitPrice,
		})
	}

	jsonBytes, _ := json.Marshal(simpleList)

	finalResp, err := session.SendMessage(ctx, genai.FunctionResponse{
		Name:     "check_inventory",
		Response: map[string]interface{}{"inventory": string(jsonBytes)},
	})
	if err != nil {
		return "", err
	}

	return handleRecursiveToolCalls(ctx, session, finalResp, actor), nil
}

// handleRecursiveToolCalls lets the model chain check_inventory into an
// adjust_stock call without another round trip through the user.
func handleRecursiveToolCalls(ctx context.Context, session *genai.ChatSession, resp *genai.GenerateContentResponse, actor string) string {
	for _, part := range resp.Candidates[0].Content.Parts {
		if funcCall, ok := part.(genai.FunctionCall); ok {
			if funcCall.Name == "adjust_stock" {
				return executeAdjustStock(ctx, session, funcCall, actor)
			}
		}
	}
	return printResponse(resp)
}

func executeAdjustStock(ctx context.Context, session *genai.ChatSession, funcCall genai.FunctionCall, actor string) string {
	args := funcCall.Args
	itemID := uint(args["item_id"].(float64))
	delta := int(args["delta"].(float64))
	note, _ := args["note"].(string)

	ledger := inventory.NewLedger(database.DB)
	item, err := ledger.AdjustStock(itemID, delta, models.MovementTypeAdjustment, actor, note, "assistant")

	response := map[string]interface{}{"status": "ok"}
	if err != nil {
		response["status"] = err.Error()
	} else {
		response["new_quantity"] = item.Quantity
	}

	finalResp, _ := session.SendMessage(ctx, genai.FunctionResponse{
		Name:     "adjust_stock",
		Response: response,
	})
	return printResponse(finalResp)
}

func executeSalesReport(ctx context.Context, session *genai.ChatSession, funcCall genai.FunctionCall) string {
	args := funcCall.Args
	startStr := args["start_date"].(string)
	endStr := args["end_date"].(string)

	start, err1 := time.Parse("2006-01-02", startStr)
	end, err2 := time.Parse("2006-01-02", endStr)

	if err1 != nil || err2 != nil {
		return "Error: Dates must be in YYYY-MM-DD format."
	}
	end = end.Add(23*time.Hour + 59*time.Minute)

	report, err := database.GetSalesReport(start, end)
	if err != nil {
		return "Error calculating sales."
	}

	finalResp, _ := session.SendMessage(ctx, genai.FunctionResponse{
		Name: "get_sales_report",
		Response: map[string]interface{}{
			"revenue":       report.TotalRevenue,
			"gst_collected": report.TotalGST,
			"sales_count":   report.TotalCount,
		},
	})
	return printResponse(finalResp)
}

func printResponse(resp *genai.GenerateContentResponse) string {
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			return string(txt)
		}
	}
	return "I completed the action."
}
