package transfer

import (
	"encoding/xml"
	"fmt"
	"time"

	"punchout-catalog/internal/domain"
)

// cXML 1.2 PunchOutOrderMessage. Field names follow the DTD at
// http://xml.cxml.org/schemas/cXML/1.2.014/cXML.dtd.
const cxmlDoctype = `<!DOCTYPE cXML SYSTEM "http://xml.cxml.org/schemas/cXML/1.2.014/cXML.dtd">`

type cxmlEnvelope struct {
	XMLName   xml.Name    `xml:"cXML"`
	PayloadID string      `xml:"payloadID,attr"`
	Timestamp string      `xml:"timestamp,attr"`
	Header    cxmlHeader  `xml:"Header"`
	Message   cxmlMessage `xml:"Message"`
}

type cxmlHeader struct {
	From   cxmlParty  `xml:"From"`
	To     cxmlParty  `xml:"To"`
	Sender cxmlSender `xml:"Sender"`
}

type cxmlParty struct {
	Credential cxmlCredential `xml:"Credential"`
}

type cxmlSender struct {
	Credential cxmlCredential `xml:"Credential"`
	UserAgent  string         `xml:"UserAgent"`
}

type cxmlCredential struct {
	Domain   string `xml:"domain,attr"`
	Identity string `xml:"Identity"`
}

type cxmlMessage struct {
	PunchOutOrderMessage cxmlPunchOutOrderMessage `xml:"PunchOutOrderMessage"`
}

type cxmlPunchOutOrderMessage struct {
	BuyerCookie string         `xml:"BuyerCookie"`
	Header      cxmlPOOMHeader `xml:"PunchOutOrderMessageHeader"`
	Items       []cxmlItemIn   `xml:"ItemIn"`
}

type cxmlPOOMHeader struct {
	OperationAllowed string   `xml:"operationAllowed,attr"`
	Total            cxmlCost `xml:"Total"`
}

type cxmlCost struct {
	Money cxmlMoney `xml:"Money"`
}

type cxmlMoney struct {
	Currency string `xml:"currency,attr"`
	Value    string `xml:",chardata"`
}

type cxmlItemIn struct {
	Quantity   int            `xml:"quantity,attr"`
	ItemID     cxmlItemID     `xml:"ItemID"`
	ItemDetail cxmlItemDetail `xml:"ItemDetail"`
}

type cxmlItemID struct {
	SupplierPartID          string `xml:"SupplierPartID"`
	SupplierPartAuxiliaryID string `xml:"SupplierPartAuxiliaryID,omitempty"`
}

type cxmlItemDetail struct {
	UnitPrice      cxmlCost            `xml:"UnitPrice"`
	Description    cxmlDescription     `xml:"Description"`
	UnitOfMeasure  string              `xml:"UnitOfMeasure"`
	Classification *cxmlClassification `xml:"Classification,omitempty"`
}

type cxmlDescription struct {
	Lang  string `xml:"xml:lang,attr"`
	Value string `xml:",chardata"`
}

type cxmlClassification struct {
	Domain string `xml:"domain,attr"`
	Value  string `xml:",chardata"`
}

func encodeCXML(msg *domain.OrderTransferMessage, supplierIdentity, buyerIdentity, currency string, now time.Time) (string, error) {
	items := make([]cxmlItemIn, 0, len(msg.Lines))
	for _, l := range msg.Lines {
		partID := l.SupplierPartID
		if partID == "" {
			partID = l.ProductID
		}
		desc := l.Name
		if l.Description != "" {
			desc = l.Name + " - " + l.Description
		}
		item := cxmlItemIn{
			Quantity: l.Quantity,
			ItemID: cxmlItemID{
				SupplierPartID:          partID,
				SupplierPartAuxiliaryID: l.ProductID,
			},
			ItemDetail: cxmlItemDetail{
				UnitPrice:     cxmlCost{Money: cxmlMoney{Currency: currency, Value: money(l.UnitPrice)}},
				Description:   cxmlDescription{Lang: "en", Value: desc},
				UnitOfMeasure: l.UnitOfMeasure,
			},
		}
		if l.UnspscCode != "" {
			item.ItemDetail.Classification = &cxmlClassification{Domain: "UNSPSC", Value: l.UnspscCode}
		}
		items = append(items, item)
	}

	env := cxmlEnvelope{
		PayloadID: fmt.Sprintf("%s@%s", msg.DocumentID, supplierIdentity),
		Timestamp: now.Format(time.RFC3339),
		Header: cxmlHeader{
			From:   cxmlParty{Credential: cxmlCredential{Domain: "NetworkID", Identity: supplierIdentity}},
			To:     cxmlParty{Credential: cxmlCredential{Domain: "NetworkID", Identity: buyerIdentity}},
			Sender: cxmlSender{
				Credential: cxmlCredential{Domain: "NetworkID", Identity: supplierIdentity},
				UserAgent:  "punchout-catalog",
			},
		},
		Message: cxmlMessage{
			PunchOutOrderMessage: cxmlPunchOutOrderMessage{
				BuyerCookie: msg.SessionToken,
				Header: cxmlPOOMHeader{
					OperationAllowed: "create",
					Total:            cxmlCost{Money: cxmlMoney{Currency: currency, Value: money(msg.Total)}},
				},
				Items: items,
			},
		},
	}

	body, err := xml.MarshalIndent(env, "", "  ")
	if err != nil {
		return "", err
	}
	return xml.Header + cxmlDoctype + "\n" + string(body), nil
}
