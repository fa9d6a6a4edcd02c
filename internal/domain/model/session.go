package model

import (
	"fmt"
	"time"

	"competitor-ad-studio/internal/domain"
)

// SyncState records whether a locally appended artifact has been confirmed by
// the backend. Saves are best-effort: a version that could not be persisted
// stays local-only and is never retracted.
type SyncState string

const (
	SyncConfirmed SyncState = "confirmed"
	SyncLocalOnly SyncState = "local_only"
)

// VideoVersion is one immutable generated-artifact record attached to a
// segment. PromptUsed is the exact text that produced the artifact, which may
// differ from the segment's current prompt if it was edited mid-flight.
type VideoVersion struct {
	URL               string
	PromptUsed        string
	GenerationSeconds int
	Sync              SyncState
	CreatedAt         time.Time
}

// Segment is one ordered sub-unit of a style variation's script,
// independently generatable. Versions is append-only.
type Segment struct {
	ID            string
	CurrentPrompt string
	Versions      []VideoVersion
}

// StyleVariation groups the segments produced for one selected style.
type StyleVariation struct {
	StyleID  string
	Segments []Segment
}

// ModelSettings carries the model configuration a session was generated with.
type ModelSettings struct {
	BriefModel  string
	VideoModel  string
	AspectRatio string
	Seed        int64
}

// CreativeSession is the aggregate root: a script, the selected styles and
// model configuration, and the variation tree it produced. The variation list
// is fixed once created; only segment prompts and version lists mutate.
type CreativeSession struct {
	ID           string
	Script       string
	StyleIDs     []string
	CharacterRef string
	Models       ModelSettings
	Variations   []StyleVariation
	CreatedAt    time.Time
}

// PromptKey derives the external addressing key for a segment. Positions are
// 1-based: "ugc:prompt:1" is the first segment of the "ugc" style.
func PromptKey(styleID string, segmentIndex int) string {
	return fmt.Sprintf("%s:prompt:%d", styleID, segmentIndex+1)
}

func (s *CreativeSession) Variation(styleID string) *StyleVariation {
	for i := range s.Variations {
		if s.Variations[i].StyleID == styleID {
			return &s.Variations[i]
		}
	}
	return nil
}

func (s *CreativeSession) Segment(styleID string, segmentIndex int) (*Segment, error) {
	v := s.Variation(styleID)
	if v == nil {
		return nil, fmt.Errorf("style %q: %w", styleID, domain.ErrNotFound)
	}
	if segmentIndex < 0 || segmentIndex >= len(v.Segments) {
		return nil, fmt.Errorf("segment index %d out of range: %w", segmentIndex, domain.ErrInvalidArgument)
	}
	return &v.Segments[segmentIndex], nil
}

// SegmentByID resolves a segment by its server-assigned id.
func (s *CreativeSession) SegmentByID(id string) *Segment {
	for i := range s.Variations {
		for j := range s.Variations[i].Segments {
			if s.Variations[i].Segments[j].ID == id {
				return &s.Variations[i].Segments[j]
			}
		}
	}
	return nil
}

// Clone returns a deep copy safe to hand out as a read-only snapshot.
func (s *CreativeSession) Clone() *CreativeSession {
	if s == nil {
		return nil
	}
	cp := *s
	cp.StyleIDs = append([]string(nil), s.StyleIDs...)
	cp.Variations = make([]StyleVariation, len(s.Variations))
	for i, v := range s.Variations {
		nv := StyleVariation{StyleID: v.StyleID, Segments: make([]Segment, len(v.Segments))}
		for j, seg := range v.Segments {
			ns := seg
			ns.Versions = append([]VideoVersion(nil), seg.Versions...)
			nv.Segments[j] = ns
		}
		cp.Variations[i] = nv
	}
	return &cp
}
