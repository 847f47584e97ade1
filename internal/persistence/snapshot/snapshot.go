// Package snapshot round-trips the tier document: a single keyed file
// holding every tier, overwritten wholesale on each save.
package snapshot

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"advancedentitylimit/internal/limits"
)

type Header struct {
	Version int    `json:"version"`
	SavedAt string `json:"saved_at"`
}

type Document struct {
	Header Header            `json:"header"`
	Tiers  map[string]TierV1 `json:"tiers"`
}

type TierV1 struct {
	Priority   int                `json:"priority"`
	Seq        int                `json:"seq"`
	Categories map[string]EntryV1 `json:"categories"`
}

type EntryV1 struct {
	Icon    string `json:"icon"`
	Limit   int    `json:"limit"`
	Enabled bool   `json:"enabled"`
}

// FromTiers builds the persisted document from an exported tier table.
func FromTiers(tiers []*limits.Tier) Document {
	doc := Document{
		Header: Header{Version: 1, SavedAt: time.Now().UTC().Format(time.RFC3339Nano)},
		Tiers:  make(map[string]TierV1, len(tiers)),
	}
	for _, t := range tiers {
		tv := TierV1{
			Priority:   t.Priority,
			Seq:        t.Seq(),
			Categories: make(map[string]EntryV1, len(t.Categories)),
		}
		for k, e := range t.Categories {
			tv.Categories[k] = EntryV1{Icon: e.Icon, Limit: e.Limit, Enabled: e.Limited}
		}
		doc.Tiers[t.Name] = tv
	}
	return doc
}

// ToTiers rebuilds the tier table from a persisted document.
func ToTiers(doc Document) []*limits.Tier {
	out := make([]*limits.Tier, 0, len(doc.Tiers))
	for name, tv := range doc.Tiers {
		cats := make(map[string]*limits.LimitEntry, len(tv.Categories))
		for k, e := range tv.Categories {
			cats[k] = &limits.LimitEntry{Icon: e.Icon, Limit: e.Limit, Limited: e.Enabled}
		}
		out = append(out, limits.RestoredTier(name, tv.Priority, tv.Seq, cats))
	}
	return out
}

// Write persists the document: zstd-compressed JSON with a plain JSON
// header line, written to a temp file and renamed into place so a crashed
// save never leaves a torn document behind.
func Write(path string, doc Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	if err := write(f, doc); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func write(f *os.File, doc Document) error {
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}

	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(doc.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := json.NewEncoder(bw).Encode(&doc); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return enc.Close()
}

// Read loads a persisted document. A missing file yields an empty document
// and no error; callers seed defaults in that case.
func Read(path string) (Document, error) {
	var doc Document
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return doc, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return doc, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Header line is informational; the body repeats it.
	_, _ = br.ReadBytes('\n')

	if err := json.NewDecoder(br).Decode(&doc); err != nil {
		return doc, fmt.Errorf("json decode: %w", err)
	}
	return doc, nil
}
