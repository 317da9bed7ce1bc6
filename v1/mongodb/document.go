package mongodb

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Document is the unit the indexer writes and the retriever returns.
type Document struct {
	// ID is the stored _id. Indexed documents without an ID get an ObjectID.
	ID any `json:"id,omitempty"`

	// Content is the text that is embedded and stored in the data field.
	Content string `json:"content"`

	// DataType describes Content. Default: "text"
	DataType string `json:"dataType,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`

	// Embedding is only populated on retrieval when the request keeps it.
	Embedding []float64 `json:"embedding,omitempty"`

	// Score is the search score of a retrieved document.
	Score float64 `json:"score,omitempty"`

	// ScoreDetails is set by hybrid search when score details are requested.
	ScoreDetails any `json:"scoreDetails,omitempty"`

	// Fields holds any other top-level fields of a retrieved row, such as
	// those produced by custom pipeline stages.
	Fields map[string]any `json:"fields,omitempty"`
}

// Doc is an opaque MongoDB document: a filter, an update, a pipeline stage
// or an index definition. It keeps key order and is read from and written to
// relaxed Extended JSON, so {"$oid": "..."} and {"$date": ...} round-trip.
type Doc bson.D

// UnmarshalJSON parses relaxed or canonical Extended JSON.
func (d *Doc) UnmarshalJSON(data []byte) error {
	var out bson.D
	if err := bson.UnmarshalExtJSON(data, false, &out); err != nil {
		return fmt.Errorf("invalid document: %w", err)
	}
	*d = Doc(out)
	return nil
}

// MarshalJSON renders the document as relaxed Extended JSON.
func (d Doc) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("null"), nil
	}
	return bson.MarshalExtJSON(bson.D(d), false, false)
}

// StringList accepts either a single string or a list of strings in JSON.
type StringList []string

// UnmarshalJSON accepts "a" as well as ["a", "b"].
func (s *StringList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*s = StringList{one}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected a string or a list of strings: %w", err)
	}
	*s = many
	return nil
}

// value returns a single string for one element and a bson.A otherwise,
// which is how $search expects paths.
func (s StringList) value() any {
	if len(s) == 1 {
		return s[0]
	}
	a := make(bson.A, len(s))
	for i, v := range s {
		a[i] = v
	}
	return a
}

var objectIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// parseID turns an id from a JSON request into its stored form: 24 hex
// character strings become ObjectIDs, integral JSON numbers become int64 and
// everything else is used verbatim.
func parseID(id any) any {
	switch v := id.(type) {
	case string:
		if objectIDPattern.MatchString(v) {
			if oid, err := bson.ObjectIDFromHex(v); err == nil {
				return oid
			}
		}
		return v
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return int64(v)
		}
		return v
	default:
		return v
	}
}

// idFilter builds {_id: <id>}.
func idFilter(id any) bson.D {
	return bson.D{{Key: "_id", Value: parseID(id)}}
}

// toStored builds the stored representation of doc. The embedding is always
// written; the content and type are left out when skipData is set.
func toStored(doc Document, vector []float64, fields FieldNames, skipData bool) bson.D {
	stored := bson.D{}
	if doc.ID != nil {
		stored = append(stored, bson.E{Key: "_id", Value: parseID(doc.ID)})
	}

	if !skipData {
		dataType := doc.DataType
		if dataType == "" {
			dataType = DefaultDataType
		}
		stored = append(stored,
			bson.E{Key: fields.DataField, Value: doc.Content},
			bson.E{Key: fields.DataTypeField, Value: dataType},
		)
	}

	metadata := doc.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	stored = append(stored,
		bson.E{Key: fields.MetadataField, Value: metadata},
		bson.E{Key: fields.EmbeddingField, Value: vector},
	)
	return stored
}

// Row fields set by the retrieval pipeline.
const (
	scoreField        = "score"
	scoreDetailsField = "scoreDetails"
)

// fromStored converts an aggregation row back into a Document.
func fromStored(row bson.M, fields FieldNames) Document {
	doc := Document{}
	for key, value := range row {
		switch key {
		case "_id":
			doc.ID = plain(value)
		case fields.DataField:
			if s, ok := value.(string); ok {
				doc.Content = s
			} else {
				doc.Content = fmt.Sprint(plain(value))
			}
		case fields.DataTypeField:
			doc.DataType, _ = value.(string)
		case fields.MetadataField:
			if m, ok := plain(value).(map[string]any); ok {
				doc.Metadata = m
			}
		case fields.EmbeddingField:
			doc.Embedding = toFloats(value)
		case scoreField:
			doc.Score = toFloat(value)
		case scoreDetailsField:
			doc.ScoreDetails = plain(value)
		default:
			if doc.Fields == nil {
				doc.Fields = map[string]any{}
			}
			doc.Fields[key] = plain(value)
		}
	}
	return doc
}

// plain converts driver types into values encoding/json renders naturally.
func plain(v any) any {
	switch t := v.(type) {
	case bson.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = plain(e.Value)
		}
		return m
	case bson.M:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = plain(e)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = plain(e)
		}
		return m
	case bson.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plain(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plain(e)
		}
		return out
	case bson.ObjectID:
		return t.Hex()
	case bson.DateTime:
		return t.Time().UTC()
	default:
		return v
	}
}

func toFloats(v any) []float64 {
	var items []any
	switch t := v.(type) {
	case []float64:
		return t
	case bson.A:
		items = t
	case []any:
		items = t
	default:
		return nil
	}

	out := make([]float64, len(items))
	for i, item := range items {
		out[i] = toFloat(item)
	}
	return out
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case int:
		return float64(t)
	default:
		return 0
	}
}
