package domain

// FAQ is a question shown in the FAQ accordion.
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ProcessStep is one stage of the ordering process.
type ProcessStep struct {
	Number      int    `json:"number"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Benefit pairs a common import problem with the service's answer.
type Benefit struct {
	Problem  string `json:"problem"`
	Solution string `json:"solution"`
	Icon     string `json:"icon"`
}

// Stat is a headline figure.
type Stat struct {
	Number string `json:"number"`
	Label  string `json:"label"`
}

// Testimonial is a customer quote.
type Testimonial struct {
	Name       string `json:"name"`
	Profession string `json:"profession"`
	Content    string `json:"content"`
	Rating     int    `json:"rating"`
}

// Initials is used for the avatar placeholder.
func (t Testimonial) Initials() string {
	return Initials(t.Name)
}

// Stars returns one entry per rating point, for template ranges.
func (t Testimonial) Stars() []int {
	r := min(max(t.Rating, 0), 5)
	stars := make([]int, r)
	for i := range stars {
		stars[i] = i + 1
	}
	return stars
}

// Guarantee is a trust badge under the product showcase.
type Guarantee struct {
	Icon        string `json:"icon"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Hero is the headline block of the landing page.
type Hero struct {
	Brand     string `json:"brand"`
	Title     string `json:"title"`
	Highlight string `json:"highlight"`
	Subtitle  string `json:"subtitle"`
	CTA       string `json:"cta"`
}

// Content is the static copy of the landing page.
type Content struct {
	Hero         Hero          `json:"hero"`
	FAQs         []FAQ         `json:"faqs"`
	Steps        []ProcessStep `json:"steps"`
	Benefits     []Benefit     `json:"benefits"`
	Stats        []Stat        `json:"stats"`
	Testimonials []Testimonial `json:"testimonials"`
	Guarantees   []Guarantee   `json:"guarantees"`
	TrustBadges  []string      `json:"trustBadges"`
}

// Validate checks that every section has usable entries.
func (c *Content) Validate() error {
	const op = "content.validate"

	if c.Hero.Title == "" {
		return Invalid(op, "hero title is required")
	}
	for i, f := range c.FAQs {
		if f.Question == "" || f.Answer == "" {
			return Errorf(EINVALID, op, "faq %d: question and answer are required", i+1)
		}
	}
	for i, s := range c.Steps {
		if s.Number != i+1 {
			return Errorf(EINVALID, op, "process step %d: numbered %d", i+1, s.Number)
		}
	}
	for i, t := range c.Testimonials {
		if t.Rating < 1 || t.Rating > 5 {
			return Errorf(EINVALID, op, "testimonial %d: rating must be between 1 and 5", i+1)
		}
	}
	return nil
}
