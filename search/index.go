// Package search keeps a full-text index of posts so listings can be
// filtered by a free-text query.
package search

import (
	"errors"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Index wraps a Bleve index of posts.
type Index struct {
	index bleve.Index
}

// Document is the indexed view of a post.
type Document struct {
	ID      string
	Title   string
	Content string
	Tags    []string
}

// Open opens the index at path, creating it when it does not exist yet.
func Open(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	return &Index{index: idx}, nil
}

// OpenMemory returns an index that lives only in memory.
func OpenMemory() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create memory index: %w", err)
	}
	return &Index{index: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	english := bleve.NewTextFieldMapping()
	english.Analyzer = "en"

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("Title", english)
	docMapping.AddFieldMappingsAt("Content", english)
	docMapping.AddFieldMappingsAt("Tags", bleve.NewTextFieldMapping())

	idID := bleve.NewTextFieldMapping()
	idID.Index = false
	docMapping.AddFieldMappingsAt("ID", idID)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// Close closes the index.
func (i *Index) Close() error {
	return i.index.Close()
}

// Put adds or replaces a document.
func (i *Index) Put(doc Document) error {
	return i.index.Index(doc.ID, doc)
}

// Delete removes a document by id.
func (i *Index) Delete(id string) error {
	return i.index.Delete(id)
}

// searchPageSize is how many hits Search fetches per round trip.
const searchPageSize = 500

// Search returns the ids of all documents matching text, best match first.
// Title hits weigh three times as much as body or tag hits.
func (i *Index) Search(text string) ([]string, error) {
	title := bleve.NewMatchQuery(text)
	title.SetField("Title")
	title.SetBoost(3)
	body := bleve.NewMatchQuery(text)
	body.SetField("Content")
	tags := bleve.NewMatchQuery(text)
	tags.SetField("Tags")

	q := bleve.NewDisjunctionQuery(title, body, tags)
	ids := []string{}
	for {
		req := bleve.NewSearchRequestOptions(q, searchPageSize, len(ids), false)
		res, err := i.index.Search(req)
		if err != nil {
			return nil, fmt.Errorf("search: %w", err)
		}
		for _, hit := range res.Hits {
			ids = append(ids, hit.ID)
		}
		if len(res.Hits) < searchPageSize || uint64(len(ids)) >= res.Total {
			return ids, nil
		}
	}
}

// Rebuild indexes docs in a single batch.
func (i *Index) Rebuild(docs []Document) error {
	batch := i.index.NewBatch()
	for _, doc := range docs {
		if err := batch.Index(doc.ID, doc); err != nil {
			return fmt.Errorf("batch index %s: %w", doc.ID, err)
		}
	}
	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Count returns the number of indexed documents.
func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}
