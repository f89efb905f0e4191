package mcp

const (
	toolFindProductPrice = "find_product_price"
	toolValidate         = "validate"
)

// Tool represents an MCP tool definition
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

const findPriceDescription = "Find the actual price of a product by analyzing an image or product URL. " +
	"Upload a product image to get AI-powered price analysis, or provide a direct product URL from " +
	"Amazon, Flipkart, or eBay to get current pricing. Use when the user uploads a product image or " +
	"provides a product URL and wants to know the current market price."

func getAllTools() []Tool {
	return []Tool{
		{
			Name:        toolFindProductPrice,
			Description: findPriceDescription,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"puch_user_id": map[string]any{
						"type":        "string",
						"description": "Puch User Unique Identifier",
					},
					"product_url": map[string]any{
						"type":        "string",
						"description": "Product URL (Amazon, Flipkart, eBay)",
					},
					"puch_image_data": map[string]any{
						"type":        "string",
						"description": "Base64-encoded product image",
					},
					"image_id_for_tool": map[string]any{
						"type":        "string",
						"description": "Puch AI image ID for tool processing",
					},
				},
			},
		},
		{
			Name:        toolValidate,
			Description: "Validation tool required by Puch AI. Returns the server owner's number.",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
	}
}
