package crm

// CRM endpoints, relative to Config.BaseURL
const (
	pathOrderSearch  = "/api/app_getcustom"
	pathClientLookup = "/api/app_getcliente"
	pathAuth         = "/api/auth"
)

// Search fields understood by the record endpoints
const (
	fieldOrderID  = "id"
	fieldClientID = "ID"
	fieldNone     = "none"
)

// searchRequest is the body shared by app_getcustom and app_getcliente
type searchRequest struct {
	Field1      string `json:"campo1"`
	Field1Value string `json:"campo1_valor"`
	Field2      string `json:"campo2"`
	Field2Value string `json:"campo2_valor"`
}

func newSearchRequest(field, value string) searchRequest {
	return searchRequest{
		Field1:      field,
		Field1Value: value,
		Field2:      fieldNone,
		Field2Value: fieldNone,
	}
}

// authRequest is the body of the auth endpoint
type authRequest struct {
	Login    string `json:"login"`
	Password string `json:"senha"`
}

// authResponse carries the token. The CRM returns it under "senha"; "token"
// is accepted as well.
type authResponse struct {
	Senha string `json:"senha"`
	Token string `json:"token"`
}

func (r authResponse) token() string {
	if r.Token != "" {
		return r.Token
	}
	return r.Senha
}

// Order row keys
const (
	keyOrderID      = "id"
	keyOrderClient  = "id_cliente"
	keyOrderName    = "nome"
	keyOrderNote    = "anotacao_tecnica"
	keyOrderHistory = "historico"
	keyOrderCity    = "cidade"
	keyOrderType    = "tipo"
	keyOrderClosed  = "data_fechamento"
)

// Client object keys
const (
	keyClientID        = "id"
	keyClientStatus    = "situacao"
	keyClientName      = "nome"
	keyClientReference = "referencia"
	keyClientLongitude = "longitude"
	keyClientLatitude  = "latitude"
)

// row is one decoded CRM record
type row map[string]any
