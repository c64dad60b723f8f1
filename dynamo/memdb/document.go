package memdb

import (
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// document is one stored item together with its extracted key
// attributes. Documents order by partition key, then sort key, which
// gives Scan and cursor resumption a stable total order.
type document struct {
	pk   types.AttributeValue
	sk   types.AttributeValue
	item map[string]types.AttributeValue
}

func docLess(l, r *document) bool {
	if avLess(l.pk, r.pk) {
		return true
	}
	if avLess(r.pk, l.pk) {
		return false
	}
	return avLess(l.sk, r.sk)
}

// avLess orders string values lexicographically and numeric values
// numerically, with strings sorting ahead of numbers when a table mixes
// key types.
func avLess(l, r types.AttributeValue) bool {
	switch lv := l.(type) {
	case *types.AttributeValueMemberS:
		rv, ok := r.(*types.AttributeValueMemberS)
		if !ok {
			return true
		}
		return lv.Value < rv.Value
	case *types.AttributeValueMemberN:
		rv, ok := r.(*types.AttributeValueMemberN)
		if !ok {
			return false
		}
		lf, lerr := strconv.ParseFloat(lv.Value, 64)
		rf, rerr := strconv.ParseFloat(rv.Value, 64)
		if lerr != nil || rerr != nil || lf == rf {
			return lv.Value < rv.Value
		}
		return lf < rf
	}
	return false
}

// avEqual compares scalar key values the way a key condition does:
// strings byte for byte, numbers by numeric value.
func avEqual(l, r types.AttributeValue) bool {
	switch lv := l.(type) {
	case *types.AttributeValueMemberS:
		rv, ok := r.(*types.AttributeValueMemberS)
		return ok && lv.Value == rv.Value
	case *types.AttributeValueMemberN:
		rv, ok := r.(*types.AttributeValueMemberN)
		if !ok {
			return false
		}
		lf, lerr := strconv.ParseFloat(lv.Value, 64)
		rf, rerr := strconv.ParseFloat(rv.Value, 64)
		if lerr != nil || rerr != nil {
			return lv.Value == rv.Value
		}
		return lf == rf
	}
	return false
}

// keyOf pulls the table's key attributes out of an item or key map and
// checks they are the scalar types keys may hold.
func (t *memTable) keyOf(attrs map[string]types.AttributeValue) (pk, sk types.AttributeValue, err error) {
	pk, err = keyAttr(attrs, t.def.PartitionField)
	if err != nil {
		return nil, nil, err
	}
	sk, err = keyAttr(attrs, t.def.SortField)
	if err != nil {
		return nil, nil, err
	}
	return pk, sk, nil
}

func keyAttr(attrs map[string]types.AttributeValue, field string) (types.AttributeValue, error) {
	v, ok := attrs[field]
	if !ok || v == nil {
		return nil, fmt.Errorf("memdb: missing key attribute %q", field)
	}
	switch v.(type) {
	case *types.AttributeValueMemberS, *types.AttributeValueMemberN:
		return v, nil
	}
	return nil, fmt.Errorf("memdb: key attribute %q must be a string or a number", field)
}

// keyAttrs rebuilds the primary-key map for an item, as used in
// LastEvaluatedKey cursors.
func (t *memTable) keyAttrs(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		t.def.PartitionField: item[t.def.PartitionField],
		t.def.SortField:      item[t.def.SortField],
	}
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}
