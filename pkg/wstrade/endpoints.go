package wstrade

import "fmt"

// DefaultBaseURL is the production trade service endpoint.
const DefaultBaseURL = "https://trade-service.wealthsimple.com"

const (
	pathLogin          = "/auth/login"
	pathRefresh        = "/auth/refresh"
	pathAccountList    = "/account/list"
	pathPositions      = "/account/positions"
	pathActivities     = "/account/activities"
	pathOrders         = "/orders"
	pathPlaceOrder     = "/orders/new"
	pathSecuritySearch = "/securities"
)

func pathHistory(interval string) string {
	return fmt.Sprintf("/account/history/%s", interval)
}

func pathSecurity(id string) string {
	return fmt.Sprintf("/securities/%s", id)
}

func pathQuote(id string) string {
	return fmt.Sprintf("/securities/%s/quote", id)
}

func pathOrder(id string) string {
	return fmt.Sprintf("/orders/%s", id)
}
