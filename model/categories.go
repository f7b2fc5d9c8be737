package model

type Category struct {
	ID      int64  `json:"id"`
	OwnerID int64  `json:"-"`
	Name    string `json:"name"`
	IconID  int    `json:"iconId"`
}

type CategoryRequest struct {
	Name   string `json:"name" validate:"required,categoryname"`
	IconID *int   `json:"iconId" validate:"required,gte=0,lte=15"`
}

// CategoryRef is the category as embedded in other views.
type CategoryRef struct {
	Name   string `json:"name"`
	IconID int    `json:"iconId"`
}

func (c Category) Ref() CategoryRef {
	return CategoryRef{Name: c.Name, IconID: c.IconID}
}
