// Package site serves the landing page content.
//
// The content ships inside the binary as YAML. Icon names are resolved
// against static tables when the content is loaded, so renderers never
// branch on names.
package site

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed content.yaml
var embeddedContent []byte

// Link is a labelled URL.
type Link struct {
	Label string `yaml:"label" json:"label"`
	URL   string `yaml:"url" json:"url"`
}

// Hero is the top banner.
type Hero struct {
	Chip        string   `yaml:"chip" json:"chip"`
	Headline    string   `yaml:"headline" json:"headline"`
	Subheadline string   `yaml:"subheadline" json:"subheadline"`
	Features    []string `yaml:"features" json:"features"`
	Actions     []Link   `yaml:"actions" json:"actions"`
}

// Card is a titled block with an icon, used for services and steps.
type Card struct {
	IconName    string `yaml:"icon" json:"-"`
	Icon        Icon   `yaml:"-" json:"icon"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
}

// Statistic is a headline number.
type Statistic struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// Contact is one line group of the footer contact block.
type Contact struct {
	IconName string   `yaml:"icon" json:"-"`
	Icon     Icon     `yaml:"-" json:"icon"`
	Lines    []string `yaml:"lines" json:"lines"`
	Alt      string   `yaml:"alt" json:"alt"`
}

// Social is a link to a social network profile.
type Social struct {
	IconName string `yaml:"icon" json:"-"`
	Icon     Icon   `yaml:"-" json:"icon"`
	URL      string `yaml:"url" json:"url"`
	Alt      string `yaml:"alt" json:"alt"`
}

// Testimonial is a quote from a community.
type Testimonial struct {
	Name  string `yaml:"name" json:"name"`
	Role  string `yaml:"role" json:"role"`
	Quote string `yaml:"quote" json:"quote"`
	Image string `yaml:"image" json:"image"`
}

// Content is everything on the landing page.
type Content struct {
	Hero         Hero          `yaml:"hero" json:"hero"`
	Services     []Card        `yaml:"services" json:"services"`
	Statistics   []Statistic   `yaml:"statistics" json:"statistics"`
	Steps        []Card        `yaml:"steps" json:"steps"`
	QuickLinks   []Link        `yaml:"quick_links" json:"quick_links"`
	ContactInfo  []Contact     `yaml:"contact_info" json:"contact_info"`
	SocialLinks  []Social      `yaml:"social_links" json:"social_links"`
	Testimonials []Testimonial `yaml:"testimonials" json:"testimonials"`
}

// Parse decodes content from YAML and resolves its icons. Unknown keys and
// multiple documents are rejected.
func Parse(data []byte) (*Content, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var c Content
	if err := dec.Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("site content is empty")
		}
		return nil, fmt.Errorf("failed to parse site content: %w", err)
	}
	var extra interface{}
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, errors.New("site content must be a single YAML document")
	}

	c.resolveIcons()
	return &c, nil
}

func (c *Content) resolveIcons() {
	for i := range c.Services {
		c.Services[i].Icon = ServiceIcons.Resolve(c.Services[i].IconName)
	}
	for i := range c.Steps {
		c.Steps[i].Icon = ServiceIcons.Resolve(c.Steps[i].IconName)
	}
	for i := range c.ContactInfo {
		c.ContactInfo[i].Icon = FooterIcons.Resolve(c.ContactInfo[i].IconName)
	}
	for i := range c.SocialLinks {
		c.SocialLinks[i].Icon = FooterIcons.Resolve(c.SocialLinks[i].IconName)
	}
}

var (
	defaultOnce    sync.Once
	defaultContent *Content
	defaultErr     error
)

// Default returns the content built into the binary. It is parsed once.
// Callers must not modify the result.
func Default() (*Content, error) {
	defaultOnce.Do(func() {
		defaultContent, defaultErr = Parse(embeddedContent)
	})
	return defaultContent, defaultErr
}
