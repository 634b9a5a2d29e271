package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/seiflotfy/shannon"
	"github.com/seiflotfy/shannon/internal/logger"
)

// TextFetcher returns the visible text of a web page.
type TextFetcher interface {
	Text(ctx context.Context, url string) (string, error)
}

type Handler struct {
	fetcher TextFetcher
	log     logger.Logger
}

func NewHandler(f TextFetcher, l logger.Logger) *Handler {
	return &Handler{fetcher: f, log: l}
}

// statusOf maps core errors to client errors; anything else is a server error.
func statusOf(err error) int {
	for _, target := range []error{
		shannon.ErrInvalidDistribution,
		shannon.ErrDuplicateSymbol,
		shannon.ErrEmptyAlphabet,
		shannon.ErrUnknownSymbol,
		shannon.ErrUnknownCode,
		shannon.ErrInvalidSeparator,
	} {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.log.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

type symbolJSON struct {
	Symbol      string  `json:"symbol"`
	Count       int     `json:"count"`
	Probability float64 `json:"probability"`
}

type analysisJSON struct {
	Length      int          `json:"length"`
	Entropy     float64      `json:"entropy"`
	MaxEntropy  float64      `json:"max_entropy"`
	Redundancy  float64      `json:"redundancy"`
	Information float64      `json:"information"`
	Symbols     []symbolJSON `json:"symbols"`
}

func analyze(text string, topN int) (analysisJSON, error) {
	t := shannon.TallyText(text)
	d, err := t.Distribution()
	if err != nil {
		return analysisJSON{}, err
	}
	out := analysisJSON{
		Length:      t.Total,
		Entropy:     d.Entropy(),
		MaxEntropy:  d.MaxEntropy(),
		Redundancy:  d.Redundancy(),
		Information: t.Information(),
	}
	for i, e := range t.Entries {
		if topN > 0 && i == topN {
			break
		}
		out.Symbols = append(out.Symbols, symbolJSON{Symbol: e.Symbol, Count: e.Count, Probability: e.Prob})
	}
	return out, nil
}

type entropyReq struct {
	Text string `json:"text" binding:"required"`
}

func (h *Handler) Entropy(c *gin.Context) {
	var req entropyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out, err := analyze(req.Text, 0)
	if err != nil {
		h.fail(c, statusOf(err), err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type jointReq struct {
	Rows   []string    `json:"rows"`
	Cols   []string    `json:"cols"`
	Matrix [][]float64 `json:"matrix" binding:"required"`
}

type conditionalJSON struct {
	Given   string      `json:"given"`
	Labels  []string    `json:"labels"`
	Slices  [][]float64 `json:"slices"`
	Defined []bool      `json:"defined"`
}

type jointResp struct {
	Rows              []string          `json:"rows"`
	Cols              []string          `json:"cols"`
	MarginalA         []float64         `json:"marginal_a"`
	MarginalB         []float64         `json:"marginal_b"`
	EntropyA          float64           `json:"h_a"`
	EntropyB          float64           `json:"h_b"`
	JointEntropy      float64           `json:"h_ab"`
	EntropyAGivenB    float64           `json:"h_a_given_b"`
	EntropyBGivenA    float64           `json:"h_b_given_a"`
	MutualInformation float64           `json:"mutual_information"`
	Conditionals      []conditionalJSON `json:"conditionals"`
}

func conditionalOf(j *shannon.Joint, given shannon.Axis) conditionalJSON {
	ct := j.Conditional(given)
	out := conditionalJSON{Given: given.String(), Labels: j.Labels(given)}
	for x := 0; x < ct.Len(); x++ {
		out.Slices = append(out.Slices, ct.Slice(x))
		out.Defined = append(out.Defined, ct.Defined(x))
	}
	return out
}

func (h *Handler) Joint(c *gin.Context) {
	var req jointReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	j, err := shannon.NewJoint(req.Rows, req.Cols, req.Matrix)
	if err != nil {
		h.fail(c, statusOf(err), err)
		return
	}
	a, b := j.Marginals()
	c.JSON(http.StatusOK, jointResp{
		Rows:              j.Labels(shannon.AxisA),
		Cols:              j.Labels(shannon.AxisB),
		MarginalA:         a.Probabilities(),
		MarginalB:         b.Probabilities(),
		EntropyA:          a.Entropy(),
		EntropyB:          b.Entropy(),
		JointEntropy:      j.Entropy(),
		EntropyAGivenB:    j.ConditionalEntropy(shannon.AxisB),
		EntropyBGivenA:    j.ConditionalEntropy(shannon.AxisA),
		MutualInformation: j.MutualInformation(),
		Conditionals:      []conditionalJSON{conditionalOf(j, shannon.AxisB), conditionalOf(j, shannon.AxisA)},
	})
}

// codeReq describes the source of a code: explicit symbols and weights, or
// the rune frequencies of Source when Symbols is empty.
type codeReq struct {
	Symbols       []string  `json:"symbols"`
	Probabilities []float64 `json:"probabilities"`
	Source        string    `json:"source"`
	Separator     string    `json:"separator"`
}

func (r codeReq) build() (*shannon.CodeTable, error) {
	var opts []shannon.Option
	if r.Separator != "" {
		opts = append(opts, shannon.WithSeparator(r.Separator))
	}
	if len(r.Symbols) == 0 && r.Source != "" {
		d, err := shannon.FromText(r.Source)
		if err != nil {
			return nil, err
		}
		return shannon.Build(d, opts...)
	}
	return shannon.BuildWeights(r.Symbols, r.Probabilities, opts...)
}

type entryJSON struct {
	Symbol      string  `json:"symbol"`
	Probability float64 `json:"probability"`
	Code        string  `json:"code"`
}

type codeResp struct {
	Entries       []entryJSON `json:"entries"`
	AverageLength float64     `json:"average_length"`
	Entropy       float64     `json:"entropy"`
	Efficiency    float64     `json:"efficiency"`
	KraftSum      float64     `json:"kraft_sum"`
}

func (h *Handler) Code(c *gin.Context) {
	var req codeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, err := req.build()
	if err != nil {
		h.fail(c, statusOf(err), err)
		return
	}
	out := codeResp{
		AverageLength: t.AverageLength(),
		Efficiency:    t.Efficiency(),
		KraftSum:      t.KraftSum(),
	}
	probs := make([]float64, 0, t.Len())
	for _, e := range t.Entries() {
		out.Entries = append(out.Entries, entryJSON{Symbol: e.Symbol, Probability: e.Prob, Code: e.Code})
		probs = append(probs, e.Prob)
	}
	out.Entropy = shannon.Entropy(probs)
	c.JSON(http.StatusOK, out)
}

// encodeReq encodes Message, a symbol sequence, or Text rune by rune.
type encodeReq struct {
	codeReq
	Message []string `json:"message"`
	Text    string   `json:"text"`
}

type encodeResp struct {
	Codes   []string `json:"codes"`
	Encoded string   `json:"encoded"`
	Bits    string   `json:"bits"`
}

func (h *Handler) Encode(c *gin.Context) {
	var req encodeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, err := req.build()
	if err != nil {
		h.fail(c, statusOf(err), err)
		return
	}
	seq := req.Message
	if len(seq) == 0 {
		for _, r := range req.Text {
			seq = append(seq, string(r))
		}
	}
	codes, err := t.Encode(seq)
	if err != nil {
		h.fail(c, statusOf(err), err)
		return
	}
	c.JSON(http.StatusOK, encodeResp{
		Codes:   codes,
		Encoded: strings.Join(codes, t.Separator()),
		Bits:    strings.Join(codes, ""),
	})
}

// decodeReq decodes exactly one of Codes, Encoded (separator-joined) or Bits
// (concatenated).
type decodeReq struct {
	codeReq
	Codes   []string `json:"codes"`
	Encoded string   `json:"encoded"`
	Bits    string   `json:"bits"`
}

type decodeResp struct {
	Symbols []string `json:"symbols"`
	Text    string   `json:"text"`
}

func (h *Handler) Decode(c *gin.Context) {
	var req decodeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, err := req.build()
	if err != nil {
		h.fail(c, statusOf(err), err)
		return
	}

	var symbols []string
	switch {
	case len(req.Codes) > 0:
		symbols, err = t.Decode(req.Codes)
	case req.Encoded != "":
		var text string
		text, err = t.DecodeString(req.Encoded)
		if err == nil {
			c.JSON(http.StatusOK, decodeResp{Text: text})
			return
		}
	default:
		symbols, err = t.DecodeBits(req.Bits)
	}
	if err != nil {
		h.fail(c, statusOf(err), err)
		return
	}
	c.JSON(http.StatusOK, decodeResp{Symbols: symbols, Text: strings.Join(symbols, "")})
}

type fetchReq struct {
	URL  string `json:"url" binding:"required"`
	TopN int    `json:"top_n"`
}

type fetchResp struct {
	URL string `json:"url"`
	analysisJSON
}

func (h *Handler) Fetch(c *gin.Context) {
	var req fetchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if h.fetcher == nil {
		h.fail(c, http.StatusServiceUnavailable, errors.New("fetching is disabled"))
		return
	}
	text, err := h.fetcher.Text(c.Request.Context(), req.URL)
	if err != nil {
		h.log.Errorf("fetch %s: %v", req.URL, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	out, err := analyze(text, req.TopN)
	if err != nil {
		h.fail(c, http.StatusBadGateway, err)
		return
	}
	h.log.Infof("fetched %s: %d symbols, H=%.4f", req.URL, out.Length, out.Entropy)
	c.JSON(http.StatusOK, fetchResp{URL: req.URL, analysisJSON: out})
}
