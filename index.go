package rtbind

// IndexForKey returns the position of the first record whose KeyField equals
// key, or -1. Order is semantic, so the scan is linear.
func IndexForKey(records []Record, key string) int {
	for i, record := range records {
		if k, ok := record.Key(); ok && k == key {
			return i
		}
	}
	return -1
}
