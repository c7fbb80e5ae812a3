package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/devninja1/kiosk-app/models"
)

// resourceRoute maps a resource path segment of the remote API to the local
// record collection and describes how its documents differ from the local
// record shape.
type resourceRoute struct {
	collection string
	segments   []string
	// idFields are aliases of "id" used by creation responses.
	idFields []string
	// renames maps server field names to local ones.
	renames map[string]string
}

var resourceRoutes = []resourceRoute{
	{
		collection: models.CollectionProducts,
		segments:   []string{"products"},
	},
	{
		collection: models.CollectionCustomers,
		segments:   []string{"customers"},
	},
	{
		collection: models.CollectionSales,
		segments:   []string{"sales", "sales-orders"},
		idFields:   []string{"order_id"},
		renames:    map[string]string{"order_items": "items"},
	},
	{
		collection: models.CollectionPurchases,
		segments:   []string{"purchases", "purchase-orders"},
		idFields:   []string{"purchase_id"},
	},
}

// resourceTarget is what a request URL points at.
type resourceTarget struct {
	route resourceRoute
	// id is the record id following the resource segment, zero for
	// collection URLs.
	id int64
}

func routeBySegment(segment string) (resourceRoute, bool) {
	for _, route := range resourceRoutes {
		for _, s := range route.segments {
			if strings.EqualFold(s, segment) {
				return route, true
			}
		}
	}
	return resourceRoute{}, false
}

// resolveResource finds the route of rawURL. The resource segment must be the
// last path segment or be followed by a numeric id only, so nested resources
// that are not in the table never resolve to their parent.
func resolveResource(rawURL string) (resourceTarget, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return resourceTarget{}, false
	}

	segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	n := len(segments)

	if n >= 1 {
		if route, ok := routeBySegment(segments[n-1]); ok {
			return resourceTarget{route: route}, true
		}
	}
	if n >= 2 {
		route, ok := routeBySegment(segments[n-2])
		if !ok {
			return resourceTarget{}, false
		}
		id, err := strconv.ParseInt(segments[n-1], 10, 64)
		if err != nil {
			return resourceTarget{}, false
		}
		return resourceTarget{route: route, id: id}, true
	}

	return resourceTarget{}, false
}

// routeForResource returns the route of a collection URL, or a bare route for
// collection when the URL is not in the table.
func routeForResource(resource, collection string) resourceRoute {
	if target, ok := resolveResource(resource); ok && target.route.collection == collection {
		return target.route
	}
	return resourceRoute{collection: collection}
}

// normalize reshapes a server document into the local record shape in place.
func (r resourceRoute) normalize(doc map[string]any) {
	for from, to := range r.renames {
		if v, ok := doc[from]; ok {
			doc[to] = v
			delete(doc, from)
		}
	}
	if _, ok := doc["id"]; ok {
		return
	}
	for _, field := range r.idFields {
		if v, ok := doc[field]; ok {
			doc["id"] = v
			return
		}
	}
}

// createdID returns the server id carried by a creation response.
func (r resourceRoute) createdID(doc map[string]any) int64 {
	for _, field := range append([]string{"id"}, r.idFields...) {
		if id := positiveInt(doc[field]); id > 0 {
			return id
		}
	}
	return 0
}

// normalizeCreated builds the record stored after a successful creation: the
// placeholder document overlaid with the server response, keyed by the
// server id.
func (r resourceRoute) normalizeCreated(placeholder, response json.RawMessage) (models.StoredRecord, error) {
	resp, err := decodeDocument(response)
	if err != nil {
		return models.StoredRecord{}, fmt.Errorf("failed to decode creation response: %w", err)
	}

	id := r.createdID(resp)
	if id <= 0 {
		return models.StoredRecord{}, ErrNoCreatedID
	}

	doc := make(map[string]any)
	if len(placeholder) > 0 {
		if doc, err = decodeDocument(placeholder); err != nil {
			return models.StoredRecord{}, fmt.Errorf("failed to decode placeholder: %w", err)
		}
	}
	// the placeholder is already in local shape; renaming the response
	// first lets its fields replace the placeholder's
	r.normalize(resp)
	for k, v := range resp {
		doc[k] = v
	}
	for _, alias := range r.idFields {
		delete(doc, alias)
	}
	doc["id"] = id
	delete(doc, models.TempIDField)

	data, err := json.Marshal(doc)
	if err != nil {
		return models.StoredRecord{}, err
	}
	return models.StoredRecord{ID: id, Data: data}, nil
}

// decodeRouted decodes one server document of route into T.
func decodeRouted[T any](route resourceRoute, raw json.RawMessage) (T, error) {
	var out T

	doc, err := decodeDocument(raw)
	if err != nil {
		return out, err
	}
	route.normalize(doc)

	data, err := json.Marshal(doc)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(data, &out)
	return out, err
}

func decodeDocument(raw json.RawMessage) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("expected a JSON object")
	}
	return doc, nil
}

func positiveInt(v any) int64 {
	var (
		id  int64
		err error
	)
	switch t := v.(type) {
	case json.Number:
		id, err = t.Int64()
	case string:
		id, err = strconv.ParseInt(t, 10, 64)
	case float64:
		id = int64(t)
	default:
		return 0
	}
	if err != nil || id <= 0 {
		return 0
	}
	return id
}

// creationPayload is the body of a queued creation: the record without its
// id, correlated with its placeholder through tempId.
func creationPayload(record any, tempID int64) (json.RawMessage, error) {
	doc, err := recordDocument(record)
	if err != nil {
		return nil, err
	}
	doc[models.TempIDField] = tempID
	return json.Marshal(doc)
}

// createBody is the body of an immediate creation.
func createBody(record any) (json.RawMessage, error) {
	doc, err := recordDocument(record)
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

func recordDocument(record any) (map[string]any, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	doc, err := decodeDocument(data)
	if err != nil {
		return nil, err
	}
	delete(doc, "id")
	return doc, nil
}
