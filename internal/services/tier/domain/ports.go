package domain

// Router decides the processing tier for a filing given its document size in megabytes
type Router interface {
	TierFor(sizeMB float64) Tier
}
