package rad

import (
	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// SignatureExport is the top-level shape of the `--signature` CLI output
// (spec §6): a JSON object keyed by macro name, not an array, so a
// caller can look a name up directly instead of scanning.
type SignatureExport map[string]Signature

// ExportSignatures renders every registered macro's signature as
// indented JSON, grounded on src/map/sigmap.rs's name->signature table.
func (p *Processor) ExportSignatures() ([]byte, error) {
	sigs := p.macros.ListSignatures()
	export := make(SignatureExport, len(sigs))
	for _, s := range sigs {
		export[s.Name] = s
	}
	return jsonAPI.MarshalIndent(export, "", "  ")
}
