package goqueryextractor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/drunksu/crawler/internal/pipeline"
)

func extract(t *testing.T, html string) pipeline.Outcome {
	t.Helper()
	e := New(Config{})
	return e.Extract(pipeline.RawDocument{
		Target: "https://catalog.example.com/list",
		Status: pipeline.DocumentOK,
		Body:   []byte(html),
	})
}

func TestExtractBlankContent(t *testing.T) {
	t.Parallel()

	for _, body := range []string{"", "   ", "\n\t  \n"} {
		outcome := extract(t, body)
		require.Equal(t, pipeline.OutcomeError, outcome.Status)
		require.Equal(t, "empty content", outcome.Reason)
	}
}

func TestExtractNoMatchingItems(t *testing.T) {
	t.Parallel()

	outcome := extract(t, `<html><body><div class="banner">sale!</div></body></html>`)
	require.Equal(t, pipeline.OutcomeEmpty, outcome.Status)
	require.Empty(t, outcome.Records)
}

func TestExtractSkipsIncompleteItems(t *testing.T) {
	t.Parallel()

	html := `<html><body>
		<div class="product-item"><span class="title">Phone X</span><span class="price">¥999</span></div>
		<div class="product-item"><span class="title">No Price Item</span></div>
		<div class="product-item"><span class="title">Case Y</span><span class="price">¥19</span></div>
	</body></html>`

	outcome := extract(t, html)
	require.Equal(t, pipeline.OutcomeSuccess, outcome.Status)
	require.Equal(t, []pipeline.ProductRecord{
		{Title: "Phone X", Price: "¥999"},
		{Title: "Case Y", Price: "¥19"},
	}, outcome.Records)
}

func TestExtractTrimsWhitespace(t *testing.T) {
	t.Parallel()

	html := `<div class="product-item">
		<span class="title">
			iPhone 15
		</span>
		<span class="price"> ¥5999 </span>
	</div>`

	outcome := extract(t, html)
	require.Equal(t, pipeline.OutcomeSuccess, outcome.Status)
	require.Len(t, outcome.Records, 1)
	require.Equal(t, "iPhone 15", outcome.Records[0].Title)
	require.Equal(t, "¥5999", outcome.Records[0].Price)
}

func TestExtractDocumentOrder(t *testing.T) {
	t.Parallel()

	html := `<ul>
		<li class="product-item"><p class="title">Phone X</p><p class="price">¥999</p></li>
		<li class="product-item"><p class="title">Case Y</p><p class="price">¥19</p></li>
	</ul>`

	outcome := extract(t, html)
	require.Equal(t, pipeline.OutcomeSuccess, outcome.Status)
	require.Equal(t, "Phone X", outcome.Records[0].Title)
	require.Equal(t, "Case Y", outcome.Records[1].Title)
}

func TestExtractCustomSelectors(t *testing.T) {
	t.Parallel()

	e := New(Config{
		ItemSelector:  "li.listing",
		TitleSelector: ".name",
		PriceSelector: ".amount",
	})
	outcome := e.Extract(pipeline.RawDocument{
		Status: pipeline.DocumentOK,
		Body:   []byte(`<li class="listing"><b class="name">华为手机</b><i class="amount">¥4999</i></li>`),
	})
	require.Equal(t, pipeline.OutcomeSuccess, outcome.Status)
	require.Equal(t, pipeline.ProductRecord{Title: "华为手机", Price: "¥4999"}, outcome.Records[0])
}
