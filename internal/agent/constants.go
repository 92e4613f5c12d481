package agent

// Server identity reported during MCP initialization.
const (
	serverName = "Brightspace MCP"

	// clientName identifies the smoke client
	clientName = "mcp-brightspace-smoke"
)

// Server transports.
const (
	TransportStdio          = "stdio"
	TransportStreamableHTTP = "streamable-http"

	// endpointPath is the fixed path of the streamable-http transport
	endpointPath = "/mcp"
)

// Tool names of the generic surface.
const (
	toolAPICall          = "bs.api_call"
	toolRequest          = "bs.request"
	toolLP               = "bs.lp"
	toolLE               = "bs.le"
	toolPaginate         = "bs.paginate"
	toolBuildPath        = "bs.build_path"
	toolUploadMultipart  = "bs.upload_multipart"
	toolDownloadB64      = "bs.download_b64"
	toolDiscoverVersions = "bs.discover_versions"
	toolWhoAmI           = "bs.whoami"
	toolListCourses      = "bs.list_courses"
	toolListOrgUnits     = "bs.list_org_units"
	toolListUsers        = "bs.list_users"
)

// defaultUploadMIME is used for upload parts without a mime type.
const defaultUploadMIME = "application/octet-stream"

// orgUnitTypeCourseOffering is the Brightspace org unit type id of course offerings.
const orgUnitTypeCourseOffering = 3
