package ratings

import (
	"encoding/base64"
	"fmt"

	"github.com/custodia-labs/profrank/internal/core/domain"
)

// teacherSearchQuery walks one search term's results, carrying each
// instructor's most recent reviews.
const teacherSearchQuery = `
query TeacherSearchPaginationQuery(
    $count: Int!
    $cursor: String
    $query: TeacherSearchQuery!
    $ratingsCount: Int!
) {
    search: newSearch {
        teachers(query: $query, first: $count, after: $cursor) {
            edges {
                cursor
                node {
                    id
                    legacyId
                    firstName
                    lastName
                    department
                    avgRating
                    avgDifficulty
                    wouldTakeAgainPercent
                    numRatings
                    teacherRatingTags {
                        tagName
                        tagCount
                    }
                    courseCodes {
                        courseName
                        courseCount
                    }
                    ratings(first: $ratingsCount) {
                        edges {
                            node {
                                id
                                comment
                                class
                                date
                                helpfulRating
                                difficultyRating
                                grade
                                wouldTakeAgain
                                ratingTags
                                thumbsUpTotal
                                thumbsDownTotal
                            }
                        }
                    }
                }
            }
            pageInfo {
                hasNextPage
                endCursor
            }
            resultCount
        }
    }
}
`

// SchoolNodeID returns the global identifier for a numeric school ID.
func SchoolNodeID(schoolID int) string {
	return base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("School-%d", schoolID)))
}

// ==================== Wire Types ====================

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables searchVariable `json:"variables"`
}

type searchVariable struct {
	Count        int         `json:"count"`
	Cursor       string      `json:"cursor"`
	Query        searchQuery `json:"query"`
	RatingsCount int         `json:"ratingsCount"`
}

type searchQuery struct {
	Text     string `json:"text"`
	SchoolID string `json:"schoolID"`
}

type graphQLResponse struct {
	Data *struct {
		Search *struct {
			Teachers *teacherConnection `json:"teachers"`
		} `json:"search"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type teacherConnection struct {
	Edges []struct {
		Cursor string      `json:"cursor"`
		Node   teacherNode `json:"node"`
	} `json:"edges"`
	PageInfo struct {
		HasNextPage bool   `json:"hasNextPage"`
		EndCursor   string `json:"endCursor"`
	} `json:"pageInfo"`
	ResultCount int `json:"resultCount"`
}

type teacherNode struct {
	ID                    string   `json:"id"`
	LegacyID              *int64   `json:"legacyId"`
	FirstName             *string  `json:"firstName"`
	LastName              *string  `json:"lastName"`
	Department            *string  `json:"department"`
	AvgRating             *float64 `json:"avgRating"`
	AvgDifficulty         *float64 `json:"avgDifficulty"`
	WouldTakeAgainPercent *float64 `json:"wouldTakeAgainPercent"`
	NumRatings            *int     `json:"numRatings"`
	TeacherRatingTags     []struct {
		TagName  *string `json:"tagName"`
		TagCount *int    `json:"tagCount"`
	} `json:"teacherRatingTags"`
	CourseCodes []struct {
		CourseName  *string `json:"courseName"`
		CourseCount *int    `json:"courseCount"`
	} `json:"courseCodes"`
	Ratings *struct {
		Edges []struct {
			Node ratingNode `json:"node"`
		} `json:"edges"`
	} `json:"ratings"`
}

type ratingNode struct {
	ID               *string  `json:"id"`
	Comment          *string  `json:"comment"`
	Class            *string  `json:"class"`
	Date             *string  `json:"date"`
	HelpfulRating    *float64 `json:"helpfulRating"`
	DifficultyRating *float64 `json:"difficultyRating"`
	Grade            *string  `json:"grade"`
	WouldTakeAgain   *int     `json:"wouldTakeAgain"`
	RatingTags       *string  `json:"ratingTags"`
	ThumbsUpTotal    *int     `json:"thumbsUpTotal"`
	ThumbsDownTotal  *int     `json:"thumbsDownTotal"`
}

// toRaw converts a wire node into the unvalidated domain record.
func (n *teacherNode) toRaw() domain.RawInstructor {
	raw := domain.RawInstructor{
		LegacyID:              n.LegacyID,
		NodeID:                n.ID,
		FirstName:             n.FirstName,
		LastName:              n.LastName,
		Department:            n.Department,
		AvgRating:             n.AvgRating,
		AvgDifficulty:         n.AvgDifficulty,
		WouldTakeAgainPercent: n.WouldTakeAgainPercent,
		NumRatings:            n.NumRatings,
	}

	for _, t := range n.TeacherRatingTags {
		raw.Tags = append(raw.Tags, domain.RawCount{Name: t.TagName, Count: t.TagCount})
	}
	for _, c := range n.CourseCodes {
		raw.Courses = append(raw.Courses, domain.RawCount{Name: c.CourseName, Count: c.CourseCount})
	}

	if n.Ratings != nil {
		for _, e := range n.Ratings.Edges {
			r := e.Node
			raw.Reviews = append(raw.Reviews, domain.RawReview{
				ID:             r.ID,
				Quality:        r.HelpfulRating,
				Difficulty:     r.DifficultyRating,
				WouldTakeAgain: r.WouldTakeAgain,
				Class:          r.Class,
				Grade:          r.Grade,
				Comment:        r.Comment,
				Date:           r.Date,
				RatingTags:     r.RatingTags,
				ThumbsUp:       r.ThumbsUpTotal,
				ThumbsDown:     r.ThumbsDownTotal,
			})
		}
	}

	return raw
}
