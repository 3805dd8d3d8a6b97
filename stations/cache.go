package stations

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"os"
)

// cachedIndex is the gob form of an Index: its stations and platform aliases
type cachedIndex struct {
	Stations []Station
	Aliases  map[string]string
}

// SerializeIndex encodes an Index with gob so a parsed GTFS archive can be
// reloaded without re-reading stop_times.
//
// Example:
//
//	index, _ := stations.LoadFile("google_transit.zip")
//	if err := stations.SerializeIndexToFile(index, "stations.gob"); err != nil {
//	    // handle error
//	}
//	// later: stations.LoadFile("stations.gob")
func SerializeIndex(ix *Index) ([]byte, error) {
	var buf bytes.Buffer
	if err := SerializeIndexToWriter(ix, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DeserializeIndex decodes and revalidates an Index written by SerializeIndex
func DeserializeIndex(data []byte) (*Index, error) {
	return DeserializeIndexFromReader(bytes.NewReader(data))
}

// SerializeIndexToFile writes the gob form of an Index to path
func SerializeIndexToFile(ix *Index, path string) error {
	data, err := SerializeIndex(ix)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// SerializeIndexToWriter writes the gob form of an Index to w
func SerializeIndexToWriter(ix *Index, w io.Writer) error {
	c := cachedIndex{Stations: ix.All(), Aliases: make(map[string]string, len(ix.aliases))}
	for k, v := range ix.aliases {
		c.Aliases[k] = v
	}
	if err := gob.NewEncoder(w).Encode(c); err != nil {
		return fmt.Errorf("failed to encode station index: %w", err)
	}
	return nil
}

// DeserializeIndexFromReader reads an Index from its gob form
func DeserializeIndexFromReader(r io.Reader) (*Index, error) {
	var c cachedIndex
	if err := gob.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: failed to decode station index: %v", ErrInvalidSource, err)
	}
	return NewIndex(c.Stations, c.Aliases)
}
