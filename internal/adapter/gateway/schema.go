package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonschema"

	"blecentral/internal/domain"
)

// RPC method names.
const (
	MethodState                    = "state"
	MethodScanStart                = "scan.start"
	MethodScanStop                 = "scan.stop"
	MethodConnect                  = "connect"
	MethodDisconnect               = "disconnect"
	MethodRSSIUpdate               = "rssi.update"
	MethodServicesDiscover         = "services.discover"
	MethodIncludedServicesDiscover = "includedServices.discover"
	MethodCharacteristicsDiscover  = "characteristics.discover"
	MethodRead                     = "read"
	MethodWrite                    = "write"
	MethodNotify                   = "notify"
	MethodDescriptorsDiscover      = "descriptors.discover"
	MethodValueRead                = "value.read"
	MethodValueWrite               = "value.write"
	MethodHandleRead               = "handle.read"
	MethodHandleWrite              = "handle.write"
	MethodPeripheralsList          = "peripherals.list"
)

const (
	uuidProp   = `{"type":"string","pattern":"^[0-9A-Fa-f-]{4,36}$"}`
	deviceProp = `{"type":"string","pattern":"^[0-9A-Fa-f:-]{4,40}$"}`
	uuidsProp  = `{"type":"array","items":` + uuidProp + `}`
	dataProp   = `{"type":"string","contentEncoding":"base64"}`
	handleProp = `{"type":"integer","minimum":0,"maximum":65535}`
)

func object(required string, props string) string {
	return `{"type":"object","additionalProperties":false,"required":[` + required + `],"properties":{` + props + `}}`
}

// rpcSchemas holds the payload schema of every method that takes one.
var rpcSchemas = map[string]string{
	MethodScanStart: object(``,
		`"serviceUuids":`+uuidsProp+`,"allowDuplicates":{"type":"boolean"}`),
	MethodConnect:    object(`"device"`, `"device":`+deviceProp),
	MethodDisconnect: object(`"device"`, `"device":`+deviceProp),
	MethodRSSIUpdate: object(`"device"`, `"device":`+deviceProp),
	MethodServicesDiscover: object(`"device"`,
		`"device":`+deviceProp+`,"serviceUuids":`+uuidsProp),
	MethodIncludedServicesDiscover: object(`"device","service"`,
		`"device":`+deviceProp+`,"service":`+uuidProp+`,"serviceUuids":`+uuidsProp),
	MethodCharacteristicsDiscover: object(`"device","service"`,
		`"device":`+deviceProp+`,"service":`+uuidProp+`,"characteristicUuids":`+uuidsProp),
	MethodRead: object(`"device","service","characteristic"`,
		`"device":`+deviceProp+`,"service":`+uuidProp+`,"characteristic":`+uuidProp),
	MethodWrite: object(`"device","service","characteristic","data"`,
		`"device":`+deviceProp+`,"service":`+uuidProp+`,"characteristic":`+uuidProp+
			`,"data":`+dataProp+`,"withoutResponse":{"type":"boolean"}`),
	MethodNotify: object(`"device","service","characteristic","enable"`,
		`"device":`+deviceProp+`,"service":`+uuidProp+`,"characteristic":`+uuidProp+
			`,"enable":{"type":"boolean"}`),
	MethodDescriptorsDiscover: object(`"device","service","characteristic"`,
		`"device":`+deviceProp+`,"service":`+uuidProp+`,"characteristic":`+uuidProp),
	MethodValueRead: object(`"device","service","characteristic","descriptor"`,
		`"device":`+deviceProp+`,"service":`+uuidProp+`,"characteristic":`+uuidProp+
			`,"descriptor":`+uuidProp),
	MethodValueWrite: object(`"device","service","characteristic","descriptor","data"`,
		`"device":`+deviceProp+`,"service":`+uuidProp+`,"characteristic":`+uuidProp+
			`,"descriptor":`+uuidProp+`,"data":`+dataProp),
	MethodHandleRead: object(`"device","handle"`,
		`"device":`+deviceProp+`,"handle":`+handleProp),
	MethodHandleWrite: object(`"device","handle","data"`,
		`"device":`+deviceProp+`,"handle":`+handleProp+`,"data":`+dataProp+
			`,"withoutResponse":{"type":"boolean"}`),
}

type schemaSet struct {
	byMethod map[string]*jsonschema.Schema
}

func compileSchemas() (*schemaSet, error) {
	compiler := jsonschema.NewCompiler()
	set := &schemaSet{byMethod: make(map[string]*jsonschema.Schema, len(rpcSchemas))}
	for method, src := range rpcSchemas {
		schema, err := compiler.Compile([]byte(src))
		if err != nil {
			return nil, fmt.Errorf("compile schema for %s: %w", method, err)
		}
		set.byMethod[method] = schema
	}
	return set, nil
}

func mustCompileSchemas() *schemaSet {
	set, err := compileSchemas()
	if err != nil {
		panic(err)
	}
	return set
}

// validate checks payload against the method's schema. Methods without a
// schema accept any payload; an absent payload is validated as {}.
func (s *schemaSet) validate(method string, payload json.RawMessage) error {
	schema, ok := s.byMethod[method]
	if !ok {
		return nil
	}
	var data any = map[string]any{}
	if len(payload) > 0 && string(payload) != "null" {
		if err := json.Unmarshal(payload, &data); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrRPCInvalidPayload, err)
		}
	}
	result := schema.Validate(data)
	if !result.IsValid() {
		return fmt.Errorf("%w: %s", domain.ErrRPCInvalidPayload, result.Error())
	}
	return nil
}
