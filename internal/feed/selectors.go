package feed

// Feed DOM selectors.
// The feed ships hashed CSS-module class names, so every selector matches on
// the stable class prefix only. Update these when alignment starts failing.

// Selectors locates the elements a page read needs.
type Selectors struct {
	// Timestamp matches the <time> element of each message (datetime attribute).
	Timestamp string

	// Body matches the message body. The feed renders one extra decorative
	// body element ahead of the first message on some layouts.
	Body string

	// Sentiment matches the author's Bullish/Bearish label, searched from the
	// body's parent.
	Sentiment string

	// Container matches the nearest enclosing message element of a body.
	Container string

	// Counter matches the engagement badges inside Container.
	Counter string
}

// XPathSelectors are evaluated with htmlquery.
var XPathSelectors = Selectors{
	Timestamp: `//time[contains(@class, 'StreamMessage_timestamp')]`,
	Body:      `//div[contains(@class, 'RichTextMessage_body')]`,
	Sentiment: `.//span[contains(@class, 'StreamMessage_sentimentText')]`,
	Container: `./ancestor::div[contains(@class, 'StreamMessage_main')][1]`,
	Counter:   `.//span[contains(@class, 'StreamMessageLabelCount_labelCount')]`,
}

// CSSSelectors are evaluated with goquery.
var CSSSelectors = Selectors{
	Timestamp: `time[class*='StreamMessage_timestamp']`,
	Body:      `div[class*='RichTextMessage_body']`,
	Sentiment: `span[class*='StreamMessage_sentimentText']`,
	Container: `div[class*='StreamMessage_main']`,
	Counter:   `span[class*='StreamMessageLabelCount_labelCount']`,
}

// Selectors used while driving the session rather than reading a page.
const (
	// WaitForMessages is present once the first page of messages rendered.
	WaitForMessages = `time[class*='StreamMessage_timestamp']`

	LoginLink     = `a[class*='SignUpButtons_logInLink']`
	LoginUsername = `input[name='login']`
	LoginPassword = `input[name='password']`
	LoginSubmit   = `button[data-testid='log-in-submit']`
)
