package courses

import "time"

type Level string

const (
	LevelBeginner     Level = "Beginner"
	LevelIntermediate Level = "Intermediate"
	LevelAdvanced     Level = "Advanced"
)

// Lesson is one unit of a course; progress is tracked per lesson id.
type Lesson struct {
	ID       string `json:"id" bson:"id" validate:"required"`
	Title    string `json:"title" bson:"title" validate:"required"`
	Duration string `json:"duration,omitempty" bson:"duration,omitempty"`
}

// Course is a catalog entry.
type Course struct {
	ID          string    `json:"id" bson:"_id"`
	Title       string    `json:"title" bson:"title" validate:"required"`
	Description string    `json:"description" bson:"description"`
	Instructor  string    `json:"instructor" bson:"instructor" validate:"required"`
	Level       Level     `json:"level" bson:"level" validate:"required,oneof=Beginner Intermediate Advanced"`
	Category    string    `json:"category" bson:"category"`
	Rating      float64   `json:"rating" bson:"rating" validate:"gte=0,lte=5"`
	Students    int       `json:"students" bson:"students" validate:"gte=0"`
	Duration    string    `json:"duration" bson:"duration"`
	Price       float64   `json:"price" bson:"price" validate:"gte=0"`
	Image       string    `json:"image" bson:"image"`
	IsFeatured  bool      `json:"isFeatured,omitempty" bson:"isFeatured,omitempty"`
	IsPopular   bool      `json:"isPopular,omitempty" bson:"isPopular,omitempty"`
	Lessons     []Lesson  `json:"lessons" bson:"lessons" validate:"dive"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

// HasLesson reports whether lessonID belongs to the course.
func (c *Course) HasLesson(lessonID string) bool {
	for _, l := range c.Lessons {
		if l.ID == lessonID {
			return true
		}
	}
	return false
}

// Filter narrows List; zero values match everything.
type Filter struct {
	Category string
	Level    Level
	Featured bool
}

func (f Filter) Match(c *Course) bool {
	if f.Category != "" && f.Category != c.Category {
		return false
	}
	if f.Level != "" && f.Level != c.Level {
		return false
	}
	if f.Featured && !c.IsFeatured {
		return false
	}
	return true
}

// Patch holds the fields an update may change; nil means unchanged.
type Patch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Instructor  *string   `json:"instructor,omitempty"`
	Level       *Level    `json:"level,omitempty" validate:"omitempty,oneof=Beginner Intermediate Advanced"`
	Category    *string   `json:"category,omitempty"`
	Price       *float64  `json:"price,omitempty" validate:"omitempty,gte=0"`
	Image       *string   `json:"image,omitempty"`
	IsFeatured  *bool     `json:"isFeatured,omitempty"`
	IsPopular   *bool     `json:"isPopular,omitempty"`
	Lessons     *[]Lesson `json:"lessons,omitempty"`
}

// Apply copies the set fields of p onto c.
func (p Patch) Apply(c *Course) {
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Instructor != nil {
		c.Instructor = *p.Instructor
	}
	if p.Level != nil {
		c.Level = *p.Level
	}
	if p.Category != nil {
		c.Category = *p.Category
	}
	if p.Price != nil {
		c.Price = *p.Price
	}
	if p.Image != nil {
		c.Image = *p.Image
	}
	if p.IsFeatured != nil {
		c.IsFeatured = *p.IsFeatured
	}
	if p.IsPopular != nil {
		c.IsPopular = *p.IsPopular
	}
	if p.Lessons != nil {
		c.Lessons = *p.Lessons
	}
}
