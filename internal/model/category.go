package model

import "time"

// Category represents an income or expense category.
//
// Type is immutable after creation; CategoryUpdate deliberately has no Type
// field.
type Category struct {
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Name         string    `json:"name" validate:"required"`
	Type         FlowType  `json:"type" validate:"required,oneof=income expense"`
	Color        string    `json:"color"`
	Icon         string    `json:"icon"`
	ID           int64     `json:"id" validate:"required,gt=0"`
	DisplayOrder int       `json:"displayOrder"`
	IsActive     bool      `json:"isActive"`
}

// Clone returns a deep copy. Category holds no reference fields, so a value
// copy suffices.
func (c Category) Clone() Category {
	return c
}

// CategoryCreate is the payload for creating a category.
type CategoryCreate struct {
	Name  string   `json:"name" validate:"required"`
	Type  FlowType `json:"type" validate:"required,oneof=income expense"`
	Color string   `json:"color"`
	Icon  string   `json:"icon"`
}

// CategoryUpdate is the payload for updating a category. Nil fields are left
// unchanged. Type is not updatable.
type CategoryUpdate struct {
	Name         *string `json:"name,omitempty" validate:"omitempty,min=1"`
	Color        *string `json:"color,omitempty"`
	Icon         *string `json:"icon,omitempty"`
	DisplayOrder *int    `json:"displayOrder,omitempty"`
	IsActive     *bool   `json:"isActive,omitempty"`
}

// ApplyTo returns a copy of c with the update's non-nil fields applied. Used
// for optimistic cache rewrites ahead of server confirmation.
func (u CategoryUpdate) ApplyTo(c Category) Category {
	out := c.Clone()
	if u.Name != nil {
		out.Name = *u.Name
	}
	if u.Color != nil {
		out.Color = *u.Color
	}
	if u.Icon != nil {
		out.Icon = *u.Icon
	}
	if u.DisplayOrder != nil {
		out.DisplayOrder = *u.DisplayOrder
	}
	if u.IsActive != nil {
		out.IsActive = *u.IsActive
	}
	return out
}

// CategoryOrder assigns one category its position in the user-defined list
// order.
type CategoryOrder struct {
	ID           int64 `json:"id" validate:"required,gt=0"`
	DisplayOrder int   `json:"displayOrder" validate:"gte=0"`
}
