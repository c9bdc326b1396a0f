package models

import "time"

type Medium string

const (
	MediumHybrid             Medium = "hybrid"
	MediumOnlineSynchronous  Medium = "online_synchronous"
	MediumOnlineAsynchronous Medium = "online_asynchronous"
	MediumInPerson           Medium = "in_person"
)

var Mediums = []Medium{MediumHybrid, MediumOnlineSynchronous, MediumOnlineAsynchronous, MediumInPerson}

func (m Medium) Valid() bool {
	for _, v := range Mediums {
		if m == v {
			return true
		}
	}
	return false
}

// Label is the human readable form used by the listing pages.
func (m Medium) Label() string {
	switch m {
	case MediumHybrid:
		return "Hybrid"
	case MediumOnlineSynchronous:
		return "Online (live)"
	case MediumOnlineAsynchronous:
		return "Online (self-paced)"
	case MediumInPerson:
		return "In person"
	}
	return string(m)
}

// Course is stored at courses/{id}. Sections, pages and versions are
// sub-collections of the course document.
type Course struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Medium      Medium    `json:"medium"`
	Price       float64   `json:"price"`
	Published   bool      `json:"published"`
	AuthorID    string    `json:"authorId"`
	Location    string    `json:"location"`
	Schedule    string    `json:"schedule"`
	CreatedAt   time.Time `json:"createdAt"`
}
