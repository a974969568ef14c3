package model

import "time"

// BoxDimensions is the outer size of the puzzle box.
type BoxDimensions struct {
	Height float64 `json:"height" validate:"gt=0"`
	Width  float64 `json:"width"  validate:"gt=0"`
	Depth  float64 `json:"depth"  validate:"gt=0"`
}

// PuzzleDimensions is the size of the assembled puzzle.
type PuzzleDimensions struct {
	Height float64 `json:"height" validate:"gt=0"`
	Width  float64 `json:"width"  validate:"gt=0"`
}

// MaxPictureBytes caps the optional picture stored with an advert.
const MaxPictureBytes = 5 << 20

// Advert is a listing for a puzzle that is up for sale.
//
// ID and CreatedAt are assigned by the store on insert. UserID is the owner
// at creation time; User carries the owner's public fields as they were when
// the row was read, and is nil when the owning account no longer exists.
type Advert struct {
	ID               int64            `json:"id"`
	Title            string           `json:"title"       validate:"required,max=120"`
	Description      string           `json:"description" validate:"max=4000"`
	Price            float64          `json:"price"       validate:"gte=0"`
	PieceAmount      int              `json:"pieceAmount" validate:"gt=0"`
	BoxDimensions    BoxDimensions    `json:"boxDimensions"`
	PuzzleDimensions PuzzleDimensions `json:"puzzleDimensions"`
	Picture          []byte           `json:"picture,omitempty" validate:"max=5242880"`
	UserID           int64            `json:"userId"`
	User             *User            `json:"user,omitempty" validate:"-"`
	CreatedAt        time.Time        `json:"createdAt"`
	IsSold           bool             `json:"isSold"`
}
