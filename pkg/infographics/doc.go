// Package infographics discovers and generates geoenrichment infographics.
//
// An infographic is a report template rendered against one or more study
// areas. The platform ships standard infographics per country and
// hierarchy; organizations publish their own as Report Template items.
//
// # Usage
//
// All operations hang off a [Catalog], which owns the session handle and
// the memoized country table:
//
//	client, _ := arcgis.NewClient("https://www.arcgis.com", arcgis.Options{Token: tok})
//	cat := infographics.NewCatalog(client, infographics.Options{})
//
//	std, err := cat.StandardInfographics(ctx, "US")          // every hierarchy
//	std, err = cat.StandardInfographics(ctx, "US", "census") // one hierarchy
//	custom, err := cat.OrganizationInfographics(ctx)
//
//	path, err := cat.CreateInfographic(ctx, infographics.CreateRequest{
//	    StudyAreas:    []geometry.Geometry{geometry.NewPoint(-117.19, 34.05)},
//	    InfographicID: "AtRisk",
//	    OutPath:       "out/redlands",
//	    Format:        infographics.FormatPDF,
//	})
//
// # Validation
//
// Country codes, hierarchies, study areas and export formats are checked
// before any report request is issued. Failures carry one of the INVALID_*
// codes from package errors. Service failures are returned as they come.
//
// # Hierarchies
//
// Requested hierarchies are checked against those of [ReferenceCountry],
// not the requested country. The service only publishes the full hierarchy
// set for the reference country, so a country with its own hierarchy (for
// example Canada's "statcan") is rejected when that hierarchy is named or
// defaulted.
package infographics
