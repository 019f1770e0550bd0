package heyao

import "encoding/json"

// QueryResponse models the parts of the lookup endpoint's JSON the plugin
// reads. Code is a pointer so "absent" and "0" stay distinguishable.
type QueryResponse struct {
	Code          *int          `json:"code"`
	Msg           string        `json:"msg"`
	Error         string        `json:"error"`
	QueryDataList []QueryRecord `json:"queryDataList"`
}

// QueryRecord is one result row. Content stays raw so a malformed payload
// fails extraction for that record instead of the whole response decode.
type QueryRecord struct {
	Content json.RawMessage `json:"content"`
}

// OrderDetails maps the display-field keys (v0..v5) to their values.
type OrderDetails map[string]string

// Field returns the display value for key, or "N/A" when the key is absent.
func (d OrderDetails) Field(key string) string {
	if v, ok := d[key]; ok {
		return v
	}
	return "N/A"
}
