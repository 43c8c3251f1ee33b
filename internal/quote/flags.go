package quote

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/utafrali/partsquote/internal/domain"
)

// leadTimeOrder ranks lead time phrases from shortest to longest. A lead time
// string is ranked by the first phrase it contains.
var leadTimeOrder = []string{
	"in stock",
	"1 week",
	"1-2 weeks",
	"2-3 weeks",
	"2-4 weeks",
	"3-4 weeks",
	"4-6 weeks",
	"6-8 weeks",
	"8+ weeks",
}

// longLeadTimeRank is the index of "4-6 weeks".
const longLeadTimeRank = 6

// largeOrderThreshold is exceeded when more units than this are quoted.
const largeOrderThreshold = 10

// DeliveryZone classifies the delivery address for freight handling.
type DeliveryZone string

const (
	ZoneMetro    DeliveryZone = "metro"
	ZoneRegional DeliveryZone = "regional"
	ZoneRemote   DeliveryZone = "remote"
)

// Flags mark quotes that need attention from the sales team.
type Flags struct {
	IsLargeOrder      bool         `json:"isLargeOrder"`
	HasLongLeadTime   bool         `json:"hasLongLeadTime"`
	LongLeadTimeItems []string     `json:"longLeadTimeItems"`
	TotalQuantity     int          `json:"totalQuantity"`
	DeliveryZone      DeliveryZone `json:"deliveryZone"`
	IsNonMetro        bool         `json:"isNonMetro"`
	IsRemote          bool         `json:"isRemote"`
	DeliveryNote      string       `json:"deliveryNote"`
}

// Standard reports whether no flag is raised.
func (f Flags) Standard() bool {
	return !f.IsLargeOrder && !f.HasLongLeadTime && !f.IsNonMetro
}

// Summary renders the flags as plain text for notifications.
func (f Flags) Summary() string {
	if f.Standard() {
		return "Standard quote, no special handling required"
	}
	var lines []string
	switch {
	case f.IsRemote:
		lines = append(lines, "REMOTE/MINE SITE: custom freight quote required")
	case f.IsNonMetro:
		lines = append(lines, "NON-METRO DELIVERY: confirm shipping cost")
	}
	if f.IsLargeOrder {
		lines = append(lines, fmt.Sprintf("LARGE ORDER (%d items)", f.TotalQuantity))
	}
	if f.HasLongLeadTime {
		lines = append(lines, "LONG LEAD TIME: "+strings.Join(f.LongLeadTimeItems, ", "))
	}
	return strings.Join(lines, "\n")
}

// LeadTimeRank returns the rank of a lead time string, or -1 when it matches
// no known phrase.
func LeadTimeRank(leadTime string) int {
	lt := strings.ToLower(leadTime)
	for i, phrase := range leadTimeOrder {
		if strings.Contains(lt, phrase) {
			return i
		}
	}
	return -1
}

// DetectFlags inspects the lines and the delivery address.
func DetectFlags(items []domain.QuoteItem, delivery Address) Flags {
	f := Flags{LongLeadTimeItems: []string{}}
	for _, item := range items {
		f.TotalQuantity += item.Quantity
		if item.LeadTime != "" && LeadTimeRank(item.LeadTime) >= longLeadTimeRank {
			f.LongLeadTimeItems = append(f.LongLeadTimeItems, fmt.Sprintf("%s (%s)", item.Name, item.LeadTime))
		}
	}
	f.IsLargeOrder = f.TotalQuantity > largeOrderThreshold
	f.HasLongLeadTime = len(f.LongLeadTimeItems) > 0

	f.DeliveryZone, f.DeliveryNote = ClassifyDelivery(delivery)
	f.IsNonMetro = f.DeliveryZone != ZoneMetro
	f.IsRemote = f.DeliveryZone == ZoneRemote
	return f
}

// metroRanges are inclusive postcode ranges with free metro delivery.
var metroRanges = [][2]int{
	{6000, 6199}, {6200, 6214}, {6215, 6239}, // Perth
	{2000, 2249}, {2555, 2574}, {2740, 2786}, // Sydney
	{3000, 3207}, {3335, 3341}, {3427, 3429}, {3750, 3810}, {3910, 3978}, // Melbourne
	{4000, 4179}, {4205, 4275}, {4500, 4519}, // Brisbane
	{5000, 5199}, // Adelaide
}

var remoteKeywords = []string{"mine", "mining", "quarry", "pit", "camp", "site", "station", "pastoral", "remote"}

// ClassifyDelivery returns the delivery zone and the customer-facing note.
// Malformed postcodes are treated as regional.
func ClassifyDelivery(addr Address) (DeliveryZone, string) {
	postcode, err := strconv.Atoi(addr.Postcode)
	if err != nil || len(addr.Postcode) != 4 {
		return ZoneRegional, "Delivery to be confirmed"
	}

	street := strings.ToLower(addr.Street + " " + addr.Suburb)
	for _, kw := range remoteKeywords {
		if strings.Contains(street, kw) {
			return ZoneRemote, "Remote/mine site, delivery quoted separately"
		}
	}

	for _, r := range metroRanges {
		if postcode >= r[0] && postcode <= r[1] {
			return ZoneMetro, "Free metro delivery"
		}
	}
	return ZoneRegional, "Delivery to be confirmed"
}
