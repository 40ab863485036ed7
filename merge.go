package record

// MergeRecords composes records ordered from strongest to weakest, returning
// a new record that keeps explicit values from stronger records while filling
// missing keys from weaker ones. Nested map[string]any values merge
// recursively; every other value is taken whole from the strongest record
// that defines it.
func MergeRecords(records ...map[string]any) map[string]any {
	if len(records) == 0 {
		return map[string]any{}
	}

	merged := cloneRecord(records[len(records)-1])
	for i := len(records) - 2; i >= 0; i-- {
		merged = mergeRecord(records[i], merged)
	}
	return merged
}

func mergeRecord(strong, weak map[string]any) map[string]any {
	if strong == nil {
		return cloneRecord(weak)
	}
	result := cloneRecord(weak)
	if result == nil {
		result = make(map[string]any, len(strong))
	}
	for key, value := range strong {
		existing, ok := result[key]
		if !ok {
			result[key] = cloneRecordValue(value)
			continue
		}
		strongMap, strongIsMap := value.(map[string]any)
		weakMap, weakIsMap := existing.(map[string]any)
		if strongIsMap && weakIsMap {
			result[key] = mergeRecord(strongMap, weakMap)
			continue
		}
		result[key] = cloneRecordValue(value)
	}
	return result
}

func cloneRecord(record map[string]any) map[string]any {
	if record == nil {
		return nil
	}
	clone := make(map[string]any, len(record))
	for key, value := range record {
		clone[key] = cloneRecordValue(value)
	}
	return clone
}

func cloneRecordValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return cloneRecord(typed)
	case []any:
		clone := make([]any, len(typed))
		for i, element := range typed {
			clone[i] = cloneRecordValue(element)
		}
		return clone
	default:
		return value
	}
}
