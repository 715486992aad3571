package datasets

import "github.com/JonMunkholm/featureprep/internal/core"

func init() {
	registerOrders()
	registerShopTransactions()
}

func registerOrders() {
	core.Register(core.DatasetDefinition{
		Info: core.DatasetInfo{
			Key:         "orders",
			Label:       "Orders",
			Description: "Order export with one row per order",
		},
		Fields: core.FieldMap{
			ID:        "order_id",
			Owner:     "customer_id",
			Timestamp: "order_ts",
			Amount:    "amount",
			Status:    "status",
		},
	})
}

// Storefront exports use their own column names for the same attributes.
func registerShopTransactions() {
	core.Register(core.DatasetDefinition{
		Info: core.DatasetInfo{
			Key:         "shop_transactions",
			Label:       "Shop Transactions",
			Description: "Storefront transaction export",
		},
		Fields: core.FieldMap{
			ID:        "transaction_id",
			Owner:     "account_id",
			Timestamp: "created_at",
			Amount:    "total",
			Status:    "state",
		},
	})
}
