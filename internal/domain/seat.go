package domain

import "github.com/google/uuid"

const rowLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// PriceForCategory is the flat per-category seat price used when a
// room's seats are bulk generated.
func PriceForCategory(c SeatCategory) float64 {
	switch c {
	case SeatVIP:
		return 50
	case SeatPreferential:
		return 35
	case SeatAccessible:
		return 30
	default:
		return 25
	}
}

// RowSpec configures a whole row of special seats during generation.
type RowSpec struct {
	Row             string
	Category        SeatCategory
	IsForDisability bool
	IsForElderly    bool
	IsForPregnant   bool
}

// GenerateSeats builds the seat grid for a room: lettered rows, seats
// numbered from 1, every seat AVAILABLE. Rows listed in specs get that
// row's category and accessibility flags; all others are standard.
func GenerateSeats(roomID uuid.UUID, rows, seatsPerRow int, specs []RowSpec) []Seat {
	byRow := make(map[string]RowSpec, len(specs))
	for _, sp := range specs {
		byRow[sp.Row] = sp
	}

	seats := make([]Seat, 0, rows*seatsPerRow)
	for r := 0; r < rows && r < len(rowLetters); r++ {
		row := string(rowLetters[r])
		category := SeatStandard
		var spec RowSpec
		if sp, ok := byRow[row]; ok {
			spec = sp
			category = sp.Category
		}
		for n := 1; n <= seatsPerRow; n++ {
			seats = append(seats, Seat{
				ID:              uuid.New(),
				RoomID:          roomID,
				Row:             row,
				Number:          n,
				Category:        category,
				Status:          SeatAvailable,
				Price:           PriceForCategory(category),
				IsForDisability: spec.IsForDisability,
				IsForElderly:    spec.IsForElderly,
				IsForPregnant:   spec.IsForPregnant,
			})
		}
	}
	return seats
}
