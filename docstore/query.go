package docstore

import "encoding/json"

// match reports whether doc contains every field of query with an equal
// value. This is the illustrative worker's entire query language: the
// original mongodb_worker.c hands bson_t filters straight to MongoDB's
// own matcher, which this embedded stand-in has no equivalent of, so
// RETRIEVE/UPDATE/DELETE matching here is narrowed to top-level field
// equality (see DESIGN.md §3).
func match(doc map[string]interface{}, query map[string]interface{}) bool {
	for k, want := range query {
		got, ok := doc[k]
		if !ok {
			return false
		}
		wantJSON, err1 := json.Marshal(want)
		gotJSON, err2 := json.Marshal(got)
		if err1 != nil || err2 != nil || string(wantJSON) != string(gotJSON) {
			return false
		}
	}
	return true
}

func unmarshalObject(raw []byte) (map[string]interface{}, error) {
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
