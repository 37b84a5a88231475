package redisx

import "time"

const (
	// Idempotency for sale confirmation: idem:sale:confirm:{account_id}:{external_id} -> sale_id
	KeyIdemSaleConfirm = "idem:sale:confirm:%s:%s"

	// Cached sale status: sale_status:{account_id}:{sale_id} -> {"status": "..."}
	// Account-scoped like every other per-sale key so one tenant's cache
	// entry can never answer for another's.
	KeySaleStatus = "sale_status:%s:%s"

	// Cached product snapshot for preview lookups: snapshot:{account_id}:{product_id}
	KeySnapshot = "snapshot:%s:%s"

	// Event dedup per consumer: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLSnapshot    = 30 * time.Second
	TTLDedup       = 48 * time.Hour
)
