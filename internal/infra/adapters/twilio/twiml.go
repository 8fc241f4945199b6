package twilio

import "encoding/xml"

// messagingResponse is the TwiML envelope Twilio expects from a webhook.
type messagingResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message,omitempty"`
}

// Reply renders a TwiML envelope carrying body. An empty body yields the
// empty envelope used when the reply is delivered out-of-band.
func Reply(body string) []byte {
	out, err := xml.Marshal(messagingResponse{Message: body})
	if err != nil {
		// The envelope has no marshal-failure mode for string content; keep
		// the webhook contract alive regardless.
		return []byte(xml.Header + "<Response></Response>")
	}
	return append([]byte(xml.Header), out...)
}
