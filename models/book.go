package models

import "time"

const (
	BookTable   = "lib_books"
	CopyTable   = "lib_copies"
	AuthorTable = "lib_authors"
)

// Copy condition values.
const (
	ConditionNew  = "New"
	ConditionGood = "Good"
	ConditionFair = "Fair"
	ConditionPoor = "Poor"
)

// Copy status values. A copy is either on the shelf or out on a loan;
// there is no third state.
const (
	CopyAvailable = "Available"
	CopyBorrowed  = "Borrowed"
)

type Book struct {
	ID              string   `gorm:"type:uuid;primaryKey" json:"id"`
	Title           string   `gorm:"size:300;not null" json:"title"`
	ISBN            string   `gorm:"size:20;uniqueIndex;not null" json:"isbn"`
	PublicationYear int      `gorm:"not null" json:"publicationYear"`
	AverageRating   *float64 `gorm:"type:decimal(3,2)" json:"averageRating,omitempty"`
	ImageURL        string   `gorm:"size:500" json:"imageUrl,omitempty"`
	CopiesCount     int      `gorm:"not null;default:0" json:"copiesCount"`

	Copies  []Copy   `gorm:"foreignKey:BookID" json:"copies,omitempty"`
	Authors []Author `gorm:"many2many:lib_book_authors" json:"authors,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Copy struct {
	ID           string `gorm:"type:uuid;primaryKey" json:"id"`
	BookID       string `gorm:"type:uuid;index;not null" json:"bookId"`
	InventoryTag string `gorm:"size:120;uniqueIndex;not null" json:"inventoryTag"`
	Condition    string `gorm:"size:20;not null;default:'New'" json:"condition"`
	Status       string `gorm:"size:20;not null;default:'Available'" json:"status"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Author struct {
	ID   string `gorm:"type:uuid;primaryKey" json:"id"`
	Name string `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Bio  string `gorm:"type:text" json:"bio,omitempty"`

	Books []Book `gorm:"many2many:lib_book_authors" json:"books,omitempty"`
}

func (Book) TableName() string   { return BookTable }
func (Copy) TableName() string   { return CopyTable }
func (Author) TableName() string { return AuthorTable }
