// Package arcgis is a minimal client for an ArcGIS portal and its
// geoenrichment helper service.
//
// # Overview
//
// A [Client] plays the role of an authenticated GIS session: it knows the
// portal URL and the token to send, and performs the handful of REST calls
// the infographics package needs:
//
//   - [Client.Properties]: portal self description, including helper services
//   - [Client.Get] / [Client.PostForm]: authenticated JSON requests
//   - [Client.Search]: content search with paging
//   - [Client.GenerateToken]: username/password sign-in
//   - [Client.CreateReport]: report rendering, streamed to a local file
//
// # Usage
//
//	client, err := arcgis.NewClient("https://www.arcgis.com", arcgis.Options{
//	    APIKey: os.Getenv("INFOGRAPHICS_API_KEY"),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ge, err := client.GeoenrichmentURL(ctx)
//
// # Errors
//
// The client does not retry. Transport failures are returned as
// NETWORK_ERROR; HTTP error statuses and the {"error": {...}} envelope the
// REST API returns with status 200 are converted to [errors.ServiceError]
// wrapped with UNAUTHORIZED, NOT_FOUND or NETWORK_ERROR.
//
// [errors.ServiceError]: github.com/matzehuels/infographics/pkg/errors.ServiceError
package arcgis
