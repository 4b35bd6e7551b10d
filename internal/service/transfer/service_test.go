package transfer

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"punchout-catalog/internal/domain"
	"punchout-catalog/internal/registry"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New([]registry.BuyerSystem{
		{Identity: "coupa-acme", Protocol: registry.ProtocolCXML, ReturnURL: "https://acme.coupahost.com/punchout/checkout"},
		{Identity: "sap-globex", Protocol: registry.ProtocolOCI, ReturnURL: "https://globex.example.com/oci/return"},
	})
	require.NoError(t, err)
	return reg
}

func newService(t *testing.T) *Service {
	t.Helper()
	return New(testRegistry(t), "punchout-catalog", "USD", zap.NewNop())
}

func activeSession(buyer, protocol string, lines ...domain.CartLine) *domain.PunchOutSession {
	return &domain.PunchOutSession{
		Token:         "tok-12345",
		BuyerIdentity: buyer,
		ReturnURL:     "https://acme.coupahost.com/punchout/checkout",
		Protocol:      protocol,
		Status:        domain.StatusActive,
		Lines:         lines,
		ExpiresAt:     time.Now().Add(time.Hour),
	}
}

func cartLine(id string, qty int, price string) domain.CartLine {
	return domain.CartLine{
		ProductID:     id,
		Name:          "Item " + id,
		Quantity:      qty,
		UnitPrice:     decimal.RequireFromString(price),
		UnitOfMeasure: "EA",
		UnspscCode:    "44121615",
	}
}

func TestEncodeEmptyCart(t *testing.T) {
	svc := newService(t)
	_, err := svc.Encode(activeSession("coupa-acme", "cxml"))
	require.ErrorIs(t, err, domain.ErrEmptyCart)
}

func TestEncodeValidation(t *testing.T) {
	svc := newService(t)

	noName := cartLine("P1", 1, "1.00")
	noName.Name = "  "
	_, err := svc.Encode(activeSession("coupa-acme", "cxml", noName))
	require.ErrorIs(t, err, domain.ErrEncoding)

	negative := cartLine("P1", 1, "1.00")
	negative.UnitPrice = decimal.NewFromInt(-1)
	_, err = svc.Encode(activeSession("coupa-acme", "cxml", negative))
	require.ErrorIs(t, err, domain.ErrEncoding)
}

func TestEncodeComputesExtendedPrices(t *testing.T) {
	svc := newService(t)
	msg, err := svc.Encode(activeSession("coupa-acme", "cxml",
		cartLine("P1", 3, "10.00"),
		cartLine("P2", 2, "4.50"),
	))
	require.NoError(t, err)
	require.NotEmpty(t, msg.DocumentID)
	require.Equal(t, "coupa-acme", msg.BuyerIdentity)
	require.Len(t, msg.Lines, 2)
	require.True(t, msg.Lines[0].ExtendedPrice.Equal(decimal.RequireFromString("30.00")))
	require.True(t, msg.Total.Equal(decimal.RequireFromString("39.00")))

	again, err := svc.Encode(activeSession("coupa-acme", "cxml", cartLine("P1", 3, "10.00"), cartLine("P2", 2, "4.50")))
	require.NoError(t, err)
	require.NotEqual(t, msg.DocumentID, again.DocumentID, "document id is fresh per attempt")
}

func TestBuildRedirectCXML(t *testing.T) {
	svc := newService(t)
	sess := activeSession("coupa-acme", "cxml", cartLine("P1", 3, "10.00"))
	msg, err := svc.Encode(sess)
	require.NoError(t, err)

	payload, doc, err := svc.BuildRedirect(msg, sess)
	require.NoError(t, err)
	require.Equal(t, "https://acme.coupahost.com/punchout/checkout", payload.URL)
	require.Equal(t, "POST", payload.Method)
	require.Len(t, payload.Fields, 1)
	require.Equal(t, "cxml-urlencoded", payload.Fields[0].Name)

	decoded, err := url.QueryUnescape(payload.Fields[0].Value)
	require.NoError(t, err)
	require.Equal(t, doc, decoded)
	require.Contains(t, doc, "<PunchOutOrderMessage>")
	require.Contains(t, doc, "<BuyerCookie>tok-12345</BuyerCookie>")
	require.Contains(t, doc, `<Money currency="USD">30.00</Money>`)
	require.Contains(t, doc, `<Classification domain="UNSPSC">44121615</Classification>`)
	require.Contains(t, doc, `quantity="3"`)
	require.True(t, strings.HasPrefix(doc, xmlHeaderPrefix), "cXML document starts with the XML declaration")
}

const xmlHeaderPrefix = "<?xml"

func TestBuildRedirectOCI(t *testing.T) {
	svc := newService(t)
	sess := activeSession("sap-globex", "oci", cartLine("P1", 2, "5.00"))
	sess.ReturnURL = "https://globex.example.com/oci/return"
	msg, err := svc.Encode(sess)
	require.NoError(t, err)

	payload, _, err := svc.BuildRedirect(msg, sess)
	require.NoError(t, err)
	require.Equal(t, "https://globex.example.com/oci/return", payload.URL)

	byName := map[string]string{}
	for _, f := range payload.Fields {
		byName[f.Name] = f.Value
	}
	require.Equal(t, "Item P1", byName["NEW_ITEM-DESCRIPTION[1]"])
	require.Equal(t, "2", byName["NEW_ITEM-QUANTITY[1]"])
	require.Equal(t, "5.00", byName["NEW_ITEM-PRICE[1]"])
	require.Equal(t, "USD", byName["NEW_ITEM-CURRENCY[1]"])
}

func TestBuildRedirectUnknownBuyer(t *testing.T) {
	svc := newService(t)
	sess := activeSession("coupa-acme", "cxml", cartLine("P1", 1, "1.00"))
	msg, err := svc.Encode(sess)
	require.NoError(t, err)

	msg.BuyerIdentity = "ghost-buyer"
	_, _, err = svc.BuildRedirect(msg, sess)
	require.ErrorIs(t, err, domain.ErrBuyerSystemUnknown)
}

func TestBuildRedirectUsesCapturedReturnURL(t *testing.T) {
	svc := newService(t)
	sess := activeSession("coupa-acme", "cxml", cartLine("P1", 1, "1.00"))
	// Simulate the buyer re-registering with a different URL after the
	// session was verified: the captured URL must win.
	sess.ReturnURL = "https://acme.coupahost.com/punchout/checkout/v1"
	msg, err := svc.Encode(sess)
	require.NoError(t, err)

	payload, _, err := svc.BuildRedirect(msg, sess)
	require.NoError(t, err)
	require.Equal(t, "https://acme.coupahost.com/punchout/checkout/v1", payload.URL)
}
