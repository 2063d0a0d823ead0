package models

// Cart holds the items a user added. The same item may appear more than once.
type Cart struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
	Items   []Item `json:"items"`
}

// CartLine groups identical cart entries for display.
type CartLine struct {
	Item     Item
	Quantity int
}

// Lines groups cart entries by item, preserving first-added order.
func (c *Cart) Lines() []CartLine {
	index := make(map[string]int)
	var lines []CartLine
	for _, item := range c.Items {
		if i, ok := index[item.ID]; ok {
			lines[i].Quantity++
			continue
		}
		index[item.ID] = len(lines)
		lines = append(lines, CartLine{Item: item, Quantity: 1})
	}
	return lines
}

// Total returns the summed price of all entries.
func (c *Cart) Total() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.Price
	}
	return total
}
