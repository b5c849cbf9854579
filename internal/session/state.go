package session

import (
	"time"

	"github.com/lehigh-university-libraries/sroie/pkg/annotation"
	"github.com/lehigh-university-libraries/sroie/pkg/providers"
	"github.com/lehigh-university-libraries/sroie/pkg/region"
)

type ImageInfo struct {
	Filename string `json:"filename"`
	Format   string `json:"format"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

type CategoryState struct {
	Name        string                  `json:"name"`
	Annotations []annotation.Annotation `json:"annotations"`
}

type RegionState struct {
	Box         region.BoundingBox `json:"box"`
	Engine      providers.Engine   `json:"engine"`
	Text        string             `json:"text"`
	Unavailable bool               `json:"unavailable"`
}

type EngineState struct {
	Name      providers.Engine `json:"name"`
	Label     string           `json:"label"`
	Available bool             `json:"available"`
	Reason    string           `json:"reason,omitempty"`
}

// State is a read-only snapshot of a session
type State struct {
	ID             string           `json:"id"`
	CreatedAt      time.Time        `json:"created_at"`
	Engine         providers.Engine `json:"engine"`
	Engines        []EngineState    `json:"engines"`
	CloudAvailable bool             `json:"cloud_available"`
	Image          *ImageInfo       `json:"image,omitempty"`
	Region         *RegionState     `json:"region,omitempty"`
	Categories     []CategoryState  `json:"categories"`
}

// State snapshots the session for display
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		Engine:    s.engine,
	}

	for _, engine := range providers.Engines() {
		es := EngineState{Name: engine, Label: engine.Label(), Available: true}
		if err := s.opts.Dispatcher.Available(engine, s.credentials); err != nil {
			es.Available = false
			es.Reason = err.Error()
		}
		if engine == providers.GoogleVision {
			st.CloudAvailable = es.Available
		}
		st.Engines = append(st.Engines, es)
	}

	if s.image != nil {
		info := s.imageInfo()
		st.Image = &info
	}
	if s.current != nil {
		st.Region = &RegionState{
			Box:         s.current.Box,
			Engine:      s.current.Result.Engine,
			Text:        s.current.Result.Text,
			Unavailable: s.current.Result.Unavailable,
		}
	}

	for _, name := range s.store.Categories() {
		st.Categories = append(st.Categories, CategoryState{
			Name:        name,
			Annotations: s.store.Annotations(name),
		})
	}
	return st
}

func (s *Session) imageInfo() ImageInfo {
	b := s.image.Bounds()
	return ImageInfo{
		Filename: s.filename,
		Format:   s.format,
		Width:    b.Dx(),
		Height:   b.Dy(),
	}
}
