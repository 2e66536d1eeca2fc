package daemon

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

const (
	soap11Namespace        = "http://schemas.xmlsoap.org/soap/envelope/"
	soap12Namespace        = "http://www.w3.org/2003/05/soap-envelope"
	notificationNamespace  = "http://schemas.microsoft.com/TeamFoundation/2005/06/Services/Notification/03"
	soap11ContentType      = "text/xml; charset=utf-8"
	soap12ContentType      = "application/soap+xml; charset=utf-8"
	errMissingNotifyBody   = "soap body does not contain a Notify request"
	errMissingEventPayload = "Notify request has no eventXml"
)

type soapVersion int

const (
	soap11 soapVersion = iota
	soap12
)

func (v soapVersion) namespace() string {
	if v == soap12 {
		return soap12Namespace
	}
	return soap11Namespace
}

func (v soapVersion) contentType() string {
	if v == soap12 {
		return soap12ContentType
	}
	return soap11ContentType
}

type soapEnvelope struct {
	XMLName xml.Name
	Body    struct {
		Notify *notifyRequest `xml:"Notify"`
	} `xml:"Body"`
}

// notifyRequest mirrors the TFS Notify operation. Only eventXml is used.
type notifyRequest struct {
	EventXML       *string `xml:"eventXml"`
	TFSIdentityXML string  `xml:"tfsIdentityXml"`
}

// parseNotify extracts the eventXml payload from a SOAP 1.1 or 1.2 envelope.
// The payload is returned exactly as the envelope carried it.
func parseNotify(body []byte) (string, soapVersion, error) {
	var env soapEnvelope
	if err := xml.NewDecoder(bytes.NewReader(body)).Decode(&env); err != nil {
		return "", soap11, fmt.Errorf("parse soap envelope: %w", err)
	}
	if env.XMLName.Local != "Envelope" {
		return "", soap11, fmt.Errorf("parse soap envelope: unexpected root element %q", env.XMLName.Local)
	}
	version := soap11
	if env.XMLName.Space == soap12Namespace {
		version = soap12
	}
	if env.Body.Notify == nil {
		return "", version, errors.New(errMissingNotifyBody)
	}
	if env.Body.Notify.EventXML == nil || strings.TrimSpace(*env.Body.Notify.EventXML) == "" {
		return "", version, errors.New(errMissingEventPayload)
	}
	return *env.Body.Notify.EventXML, version, nil
}

func notifyResponse(version soapVersion) []byte {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
	fmt.Fprintf(&b, `<soap:Envelope xmlns:soap="%s"><soap:Body>`, version.namespace())
	fmt.Fprintf(&b, `<NotifyResponse xmlns="%s" />`, notificationNamespace)
	b.WriteString(`</soap:Body></soap:Envelope>`)
	return b.Bytes()
}

// soapFault renders a fault. client selects the sender-side fault code
// (Client in SOAP 1.1, Sender in SOAP 1.2).
func soapFault(version soapVersion, client bool, message string) []byte {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
	fmt.Fprintf(&b, `<soap:Envelope xmlns:soap="%s"><soap:Body><soap:Fault>`, version.namespace())
	switch version {
	case soap12:
		code := "soap:Receiver"
		if client {
			code = "soap:Sender"
		}
		fmt.Fprintf(&b, `<soap:Code><soap:Value>%s</soap:Value></soap:Code>`, code)
		fmt.Fprintf(&b, `<soap:Reason><soap:Text xml:lang="en">%s</soap:Text></soap:Reason>`, escapeXML(message))
	default:
		code := "soap:Server"
		if client {
			code = "soap:Client"
		}
		fmt.Fprintf(&b, `<faultcode>%s</faultcode><faultstring>%s</faultstring>`, code, escapeXML(message))
	}
	b.WriteString(`</soap:Fault></soap:Body></soap:Envelope>`)
	return b.Bytes()
}

func escapeXML(value string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(value))
	return b.String()
}
