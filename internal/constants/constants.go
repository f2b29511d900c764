package constants

// LevelTags lists every hierarchy level tag the deployment can configure,
// in root-to-leaf order.
var LevelTags = []string{"L0", "L1", "L2", "L3", "L4", "L5"}

// DefaultHierarchyLabels maps level tags to their default display labels.
// Deployments override these via the LOCATION_HIERARCHY setting.
var DefaultHierarchyLabels = map[string]string{
	"L0": "Country",
	"L1": "Region",
	"L2": "District",
	"L3": "Subdistrict",
	"L4": "Settlement",
	"L5": "Neighborhood",
}

// FilterOperator is the operator suffix carried on selected-value keys,
// e.g. "L1__belongs".
const FilterOperator = "belongs"

// FieldTypeLocationReference identifies a resource field that references a
// location record. Candidate resolution only accepts fields of this type.
const FieldTypeLocationReference = "reference locations"

// LocationsTable is the table name of the location hierarchy store.
const LocationsTable = "locations"

// NoOptionsMessage is the sentinel returned when resolution yields no
// options at all.
const NoOptionsMessage = "No options available"
