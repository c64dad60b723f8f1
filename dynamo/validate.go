package dynamo

// checkKeyValue returns a non-empty reason when v cannot serve as a key
// value. Keys must be non-empty strings or numbers; there is no format
// or length rule beyond that.
func checkKeyValue(v any) string {
	switch n := v.(type) {
	case string:
		if n == "" {
			return "must not be an empty string"
		}
		return ""
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return ""
	default:
		return "must be a string or a number"
	}
}

// ValidateKey checks the key fields of raw and returns a normalized key
// carrying exactly the schema's fields. Extra fields never reach the
// backend.
func (s KeySchema) ValidateKey(raw Key) (Key, error) {
	key := make(Key, 2)
	for _, field := range s.keyFields() {
		v, ok := raw[field]
		if !ok {
			return nil, &ValidationError{Field: field, Reason: "missing"}
		}
		if reason := checkKeyValue(v); reason != "" {
			return nil, &ValidationError{Field: field, Reason: reason}
		}
		key[field] = v
	}
	return key, nil
}

// ValidateRecord checks that rec carries valid key fields. The rest of
// the record is an open shape and passes through untouched.
func (s KeySchema) ValidateRecord(rec Record) error {
	for _, field := range s.keyFields() {
		v, ok := rec[field]
		if !ok {
			return &ValidationError{Field: field, Reason: "missing"}
		}
		if reason := checkKeyValue(v); reason != "" {
			return &ValidationError{Field: field, Reason: reason}
		}
	}
	return nil
}

func (s KeySchema) validateKeys(keys []Key) ([]Key, error) {
	out := make([]Key, 0, len(keys))
	for i, raw := range keys {
		key, err := s.ValidateKey(raw)
		if err != nil {
			return nil, &BatchValidationError{Index: i, Err: err}
		}
		out = append(out, key)
	}
	return out, nil
}

func (s KeySchema) validateRecords(recs []Record) error {
	for i, rec := range recs {
		if err := s.ValidateRecord(rec); err != nil {
			return &BatchValidationError{Index: i, Err: err}
		}
	}
	return nil
}

// filterUpdates drops the key fields from a patch payload. A patch can
// change any attribute except the ones that address the record.
func (s KeySchema) filterUpdates(updates Record) Record {
	out := make(Record, len(updates))
	for field, v := range updates {
		if field == s.PartitionField || field == s.SortField {
			continue
		}
		out[field] = v
	}
	return out
}
