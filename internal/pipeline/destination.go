package pipeline

// BucketLayout maps a job's linked_to_type to its permanent home. Unmapped
// categories land in the default media bucket.
type BucketLayout struct {
	Staging    string
	Quarantine string
	Default    string
	ByCategory map[string]string
}

// Flat categories keep their original object key. Everything else gets a
// linked_to_type/ prefix so large categories shard into their own keyspace.
var flatCategories = map[string]struct{}{
	"":       {},
	"avatar": {},
	"banner": {},
}

func (l BucketLayout) Destination(linkedToType, key string) (bucket, destKey string) {
	bucket = l.Default
	if mapped, ok := l.ByCategory[linkedToType]; ok {
		bucket = mapped
	}

	destKey = key
	if _, flat := flatCategories[linkedToType]; !flat {
		destKey = linkedToType + "/" + key
	}
	return bucket, destKey
}
