// Package placeindex mirrors places into Elasticsearch for geo-distance
// queries.
package placeindex

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/olivere/elastic/v7"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aptscout/aptscout/internal/places"
)

const mapping = `{
	"mappings": {
		"properties": {
			"id":       {"type": "long"},
			"place_id": {"type": "keyword"},
			"name":     {"type": "text"},
			"address":  {"type": "text"},
			"location": {"type": "geo_point"},
			"rating":   {"type": "float"},
			"types":    {"type": "keyword"}
		}
	}
}`

// document is the indexed form of a place.
type document struct {
	ID       int64            `json:"id"`
	PlaceID  string           `json:"place_id"`
	Name     string           `json:"name"`
	Address  string           `json:"address"`
	Phone    *string          `json:"phone,omitempty"`
	Website  *string          `json:"website,omitempty"`
	Rating   *float64         `json:"rating,omitempty"`
	Location elastic.GeoPoint `json:"location"`
	Types    []string         `json:"types,omitempty"`
}

func toDocument(p places.Place) document {
	return document{
		ID:       p.ID,
		PlaceID:  p.PlaceID,
		Name:     p.Name,
		Address:  p.Address,
		Phone:    p.Phone,
		Website:  p.Website,
		Rating:   p.Rating,
		Location: elastic.GeoPoint{Lat: p.Latitude, Lon: p.Longitude},
		Types:    p.Types,
	}
}

func (d document) place() places.Place {
	return places.Place{
		ID:        d.ID,
		PlaceID:   d.PlaceID,
		Name:      d.Name,
		Address:   d.Address,
		Phone:     d.Phone,
		Website:   d.Website,
		Rating:    d.Rating,
		Latitude:  d.Location.Lat,
		Longitude: d.Location.Lon,
		Types:     d.Types,
	}
}

// Index is an Elasticsearch-backed place index.
type Index struct {
	client *elastic.Client
	name   string
}

// New connects to the cluster at url. Extra client options are appended
// after the defaults.
func New(url, index string, sniff bool, opts ...elastic.ClientOptionFunc) (*Index, error) {
	if url == "" {
		return nil, eris.New("placeindex: elastic url is required")
	}
	if index == "" {
		index = "places"
	}
	all := append([]elastic.ClientOptionFunc{
		elastic.SetURL(url),
		elastic.SetSniff(sniff),
	}, opts...)

	client, err := elastic.NewClient(all...)
	if err != nil {
		return nil, eris.Wrap(err, "placeindex: create client")
	}
	return &Index{client: client, name: index}, nil
}

// EnsureIndex creates the index with its geo_point mapping if missing.
func (ix *Index) EnsureIndex(ctx context.Context) error {
	exists, err := ix.client.IndexExists(ix.name).Do(ctx)
	if err != nil {
		return eris.Wrap(err, "placeindex: check index")
	}
	if exists {
		return nil
	}

	res, err := ix.client.CreateIndex(ix.name).BodyString(mapping).Do(ctx)
	if err != nil {
		return eris.Wrapf(err, "placeindex: create index %s", ix.name)
	}
	if !res.Acknowledged {
		zap.L().Warn("placeindex: create index not acknowledged", zap.String("index", ix.name))
	}
	zap.L().Info("placeindex: index created", zap.String("index", ix.name))
	return nil
}

// IndexPlaces bulk-indexes ps by row id and returns how many succeeded.
// Per-document failures are logged, not returned.
func (ix *Index) IndexPlaces(ctx context.Context, ps []places.Place) (int, error) {
	if len(ps) == 0 {
		return 0, nil
	}

	bulk := ix.client.Bulk().Index(ix.name)
	for _, p := range ps {
		bulk.Add(elastic.NewBulkIndexRequest().
			Id(strconv.FormatInt(p.ID, 10)).
			Doc(toDocument(p)))
	}

	res, err := bulk.Do(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "placeindex: bulk index")
	}
	for _, item := range res.Failed() {
		reason := ""
		if item.Error != nil {
			reason = item.Error.Reason
		}
		zap.L().Warn("placeindex: document failed",
			zap.String("id", item.Id),
			zap.Int("status", item.Status),
			zap.String("reason", reason),
		)
	}
	return len(res.Succeeded()), nil
}

// Nearby returns places within q.RadiusMeters of the query point, nearest
// first.
func (ix *Index) Nearby(ctx context.Context, q places.NearbyQuery) ([]places.NearbyPlace, error) {
	if q.RadiusMeters <= 0 {
		return nil, eris.New("placeindex: nearby radius must be > 0")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	query := elastic.NewBoolQuery().Filter(
		elastic.NewGeoDistanceQuery("location").
			Lat(q.Lat).
			Lon(q.Lng).
			Distance(fmt.Sprintf("%gm", q.RadiusMeters)),
	)
	if len(q.Types) > 0 {
		query = query.Filter(elastic.NewTermsQueryFromStrings("types", q.Types...))
	}

	res, err := ix.client.Search().
		Index(ix.name).
		Query(query).
		SortBy(elastic.NewGeoDistanceSort("location").
			Point(q.Lat, q.Lng).
			Asc().
			Unit("m").
			DistanceType("arc")).
		Size(limit).
		Do(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "placeindex: nearby search")
	}

	out := make([]places.NearbyPlace, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var doc document
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			zap.L().Warn("placeindex: skipping undecodable hit", zap.String("id", hit.Id), zap.Error(err))
			continue
		}
		np := places.NearbyPlace{Place: doc.place()}
		if len(hit.Sort) > 0 {
			if d, ok := hit.Sort[0].(float64); ok {
				np.DistanceMeters = d
			}
		}
		out = append(out, np)
	}
	return out, nil
}
