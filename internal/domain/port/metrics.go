package port

import "time"

// Cache lookup and population results used as metric labels.
const (
	LookupHit     = "hit"
	LookupMiss    = "miss"
	LookupError   = "error"
	LookupCorrupt = "corrupt"

	PopulationStored  = "stored"
	PopulationExists  = "exists"
	PopulationInvalid = "invalid"
	PopulationError   = "error"
)

type MetricsPort interface {
	CacheLookup(result string)
	OriginFetch(origin string, took time.Duration, err error)
	QueuePublish(queue string, err error)
	CachePopulation(result string)
	MailDelivery(err error)
}
