package pagination

import (
	"math"

	"gorm.io/gorm"

	svcErr "github.com/oggyb/campus-match/internal/errors"
)

// MaxSize caps page sizes accepted from callers.
const MaxSize = 100

// Page is a 1-indexed window of fixed size.
// Page p covers offsets [(p-1)*size, p*size).
type Page struct {
	Number int `json:"page"`
	Size   int `json:"page_size"`
}

// New validates the window arguments.
func New(number, size int) (Page, error) {
	if number < 1 {
		return Page{}, svcErr.Validation("page must be >= 1")
	}
	if size < 1 || size > MaxSize {
		return Page{}, svcErr.Validation("page_size must be between 1 and 100")
	}
	// the offset must fit in an int
	if number > math.MaxInt/size {
		return Page{}, svcErr.Validation("page is out of range")
	}
	return Page{Number: number, Size: size}, nil
}

// First returns page 1 of the given size.
func First(size int) Page {
	return Page{Number: 1, Size: size}
}

func (p Page) Offset() int { return (p.Number - 1) * p.Size }

func (p Page) Limit() int { return p.Size }

// Scope applies the window to a gorm query.
//
// Example:
//
//	db.Order("created_at DESC").Scopes(page.Scope()).Find(&msgs)
func (p Page) Scope() func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Offset(p.Offset()).Limit(p.Limit())
	}
}
