package model

// FilterRequest is the wire shape of a transaction filter. Date ordering and
// category names are checked by the validator before it is turned into criteria.
type FilterRequest struct {
	Categories []string `json:"categories" validate:"omitempty,dive,categoryname"`
	From       *Date    `json:"from"`
	Until      *Date    `json:"until"`
}

// DateBounds exposes the date pair for the date range rule.
func (f FilterRequest) DateBounds() (*Date, *Date, string, string) {
	return f.From, f.Until, "from", "until"
}

// Criteria drops zero dates so that `{"from": null}` means unbounded.
func (f FilterRequest) Criteria() FilterCriteria {
	c := FilterCriteria{Categories: f.Categories}
	if f.From != nil && !f.From.IsZero() {
		from := *f.From
		c.From = &from
	}
	if f.Until != nil && !f.Until.IsZero() {
		until := *f.Until
		c.Until = &until
	}
	return c
}

// FilterCriteria is a validated filter. Empty Categories means every category
// of the owner; nil bounds are unbounded on that side.
type FilterCriteria struct {
	Categories []string
	From       *Date
	Until      *Date
}

func (c FilterCriteria) HasCategories() bool {
	return len(c.Categories) > 0
}

// TransactionQuery is what the aggregator asks of the store once category
// names are resolved to ids.
type TransactionQuery struct {
	OwnerID     int64
	CategoryIDs []int64
	From        *Date
	Until       *Date
	Kind        Kind
}

// Matches applies the query to one record; stores without a query language use it.
func (q TransactionQuery) Matches(t Transaction) bool {
	if t.OwnerID != q.OwnerID {
		return false
	}
	if q.Kind != "" && t.Kind != q.Kind {
		return false
	}
	if len(q.CategoryIDs) > 0 {
		found := false
		for _, id := range q.CategoryIDs {
			if t.Category.ID == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return t.Date.Between(q.From, q.Until)
}
