package sqlassets

import _ "embed"

//go:embed schema/tenants.sql
var TenantsSQL string

//go:embed schema/capture_pages.sql
var CapturePagesSQL string

//go:embed schema/leads.sql
var LeadsSQL string
