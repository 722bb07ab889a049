package apiutil

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

const clubIDQueryKey = "club_id"

func ParsePositiveInt64Field(raw string, field string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", field)
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", field)
	}
	return value, nil
}

func ClubIDFromQuery(r *http.Request) (int64, error) {
	return ParsePositiveInt64Field(r.URL.Query().Get(clubIDQueryKey), clubIDQueryKey)
}

func IDFromPath(r *http.Request, name string) (int64, error) {
	return ParsePositiveInt64Field(r.PathValue(name), name)
}

func FormatPriceCents(cents int64) string {
	return fmt.Sprintf("%.2f EUR", float64(cents)/100)
}
