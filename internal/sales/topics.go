package sales

const (
	TopicSaleConfirmed     = "sale.confirmed"
	TopicSaleStockApplied  = "sale.stock.applied"
	TopicSaleStockRejected = "sale.stock.rejected"
	TopicSaleVoided        = "sale.voided"
)

// Partition key = sale_id so all events of one sale stay ordered.
func PartitionKey(saleID string) []byte { return []byte(saleID) }
