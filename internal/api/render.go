// SPDX-License-Identifier: MIT

package api

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/ManuGH/zonewatch/internal/access"
)

type xmlZone struct {
	XMLName xml.Name    `xml:"zone"`
	Name    string      `xml:"name,attr"`
	Result  string      `xml:"result,attr"`
	Reports []xmlReport `xml:"report"`
	Log     string      `xml:"log"`
}

type xmlReport struct {
	Key    string `xml:"key,attr"`
	Result string `xml:"result,attr"`
	Value  string `xml:",chardata"`
}

// renderXML renders the document view of a zone.
func renderXML(resp access.Response[string]) ([]byte, error) {
	doc := xmlZone{
		Name:   resp.Zone,
		Result: resp.Combined.Result().String(),
		Log:    resp.Combined.Value(),
	}
	for _, e := range resp.Reports.Entries() {
		doc.Reports = append(doc.Reports, xmlReport{Key: e.Key, Result: e.Report.Result().String(), Value: e.Report.Value()})
	}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render zone %q as xml: %w", resp.Zone, err)
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}

// renderShell renders the scripting view: one KEY='value' assignment per
// line, safe to eval in a POSIX shell.
func renderShell(resp access.Response[string]) string {
	var b strings.Builder
	assign := func(key, value string) {
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(shellQuote(value))
		b.WriteByte('\n')
	}
	assign("ZONE", resp.Zone)
	assign("RESULT", resp.Combined.Result().String())
	entries := resp.Reports.Entries()
	assign("REPORTS", fmt.Sprint(len(entries)))
	for i, e := range entries {
		prefix := fmt.Sprintf("REPORT_%d_", i)
		assign(prefix+"KEY", e.Key)
		assign(prefix+"RESULT", e.Report.Result().String())
		assign(prefix+"VALUE", e.Report.Value())
	}
	assign("LOG", resp.Combined.Value())
	return b.String()
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
