package store

import "encoding/json"

// JSONCodec is the default Codec: it round-trips any flavor's Delta type
// through its own (Un)MarshalJSON methods (body/caret/property each
// define these in ot/<flavor>/codec.go), so the store package never
// needs flavor-specific knowledge.
type JSONCodec[D any] struct{}

func (JSONCodec[D]) Encode(d D) ([]byte, error) {
	return json.Marshal(d)
}

func (JSONCodec[D]) Decode(data []byte) (D, error) {
	var d D
	err := json.Unmarshal(data, &d)
	return d, err
}
