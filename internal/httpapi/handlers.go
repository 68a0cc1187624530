package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mbellec/retail-backoffice/internal/domain/catalog"
	importsvc "github.com/mbellec/retail-backoffice/internal/domain/imports/service"
	"github.com/mbellec/retail-backoffice/internal/domain/sales"
	"github.com/mbellec/retail-backoffice/pkg/money"
	"github.com/mbellec/retail-backoffice/pkg/storage"
)

// readUpload pulls the uploaded spreadsheet out of a multipart form.
func readUpload(c *gin.Context) (string, []byte, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file upload"})
		return "", nil, false
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file upload"})
		return "", nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file upload"})
		return "", nil, false
	}
	return fileHeader.Filename, data, true
}

// importError distinguishes structural import failures from server faults.
func importError(c *gin.Context, err error) {
	var structural *importsvc.StructuralError
	if errors.As(err, &structural) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":         structural.Reason,
			"missing":       structural.Missing,
			"headerMapping": structural.Mapping.ByRaw,
			"unrecognized":  structural.Mapping.Unrecognized,
		})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (s *Server) previewSalesImport(c *gin.Context) {
	filename, data, ok := readUpload(c)
	if !ok {
		return
	}

	preview, err := s.imports.PreviewSales(c.Request.Context(), filename, data)
	if err != nil {
		importError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

func (s *Server) commitSalesImport(c *gin.Context) {
	var records []sales.Sale
	if err := c.ShouldBindJSON(&records); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	s.mutationStatus(c, s.imports.CommitSales(c.Request.Context(), records))
}

func (s *Server) previewStockImport(c *gin.Context) {
	filename, data, ok := readUpload(c)
	if !ok {
		return
	}

	preview, err := s.imports.PreviewStock(c.Request.Context(), filename, data)
	if err != nil {
		importError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

func (s *Server) commitStockImport(c *gin.Context) {
	var products []catalog.Product
	if err := c.ShouldBindJSON(&products); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	s.mutationStatus(c, s.imports.CommitStock(c.Request.Context(), products))
}

func (s *Server) listArchive(c *gin.Context) {
	files, err := s.archive.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "archive listing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files, "count": len(files)})
}

// archiveID parses the :id path parameter.
func archiveID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) downloadArchive(c *gin.Context) {
	id, ok := archiveID(c)
	if !ok {
		return
	}

	f, info, err := s.archive.Open(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "archive read failed"})
		return
	}
	defer f.Close()

	c.Header("Content-Disposition", `attachment; filename="`+info.Name+`"`)
	c.DataFromReader(http.StatusOK, info.Size, info.ContentType, f, nil)
}

func (s *Server) deleteArchive(c *gin.Context) {
	id, ok := archiveID(c)
	if !ok {
		return
	}

	if err := s.archive.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "archive delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// salesQuery decodes the list endpoint's filter parameters.
func salesQuery(c *gin.Context) sales.Query {
	q := sales.Query{
		Register: c.Query("register"),
		Seller:   c.Query("seller"),
		Category: c.Query("category"),
		Search:   c.Query("search"),
		SortBy:   c.Query("sort"),
		SortDesc: c.Query("order") == "desc",
	}
	if from, err := time.Parse("2006-01-02", c.Query("from")); err == nil {
		q.From = from
	}
	if to, err := time.Parse("2006-01-02", c.Query("to")); err == nil {
		q.To = to
	}
	return q
}

func (s *Server) listSales(c *gin.Context) {
	filtered := sales.Filter(s.dataset.Sales(), salesQuery(c))
	c.JSON(http.StatusOK, gin.H{"sales": filtered, "count": len(filtered)})
}

// createSaleRequest is the manual-entry payload; the total comes in as a
// string so "3,00" and "3.00" both work.
type createSaleRequest struct {
	Product  string  `json:"product" binding:"required"`
	Category string  `json:"category" binding:"required"`
	Register string  `json:"register"`
	Date     string  `json:"date" binding:"required"`
	Seller   string  `json:"seller" binding:"required"`
	Quantity float64 `json:"quantity" binding:"required,gt=0"`
	Total    string  `json:"total" binding:"required"`
}

func (s *Server) createSales(c *gin.Context) {
	var reqs []createSaleRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	records := make([]sales.Sale, 0, len(reqs))
	for i, req := range reqs {
		sale, err := buildSale(req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "index": i})
			return
		}
		records = append(records, sale)
	}

	s.mutationStatus(c, s.dataset.CreateSales(c.Request.Context(), records))
}

func buildSale(req createSaleRequest) (sales.Sale, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return sales.Sale{}, errors.New("date must be YYYY-MM-DD")
	}

	total, ok := money.ParseAmount(req.Total)
	if !ok {
		return sales.Sale{}, errors.New("unparseable total")
	}

	register, _ := sales.NormalizeRegister(req.Register, sales.Register1)
	total = money.Round2(total)

	return sales.Sale{
		Product:  req.Product,
		Category: req.Category,
		Register: register,
		Date:     date,
		Seller:   req.Seller,
		Quantity: req.Quantity,
		Total:    total,
		Price:    money.UnitPrice(total, req.Quantity),
	}, nil
}

func (s *Server) deleteSale(c *gin.Context) {
	s.mutationStatus(c, s.dataset.DeleteSales(c.Request.Context(), []string{c.Param("id")}))
}

func (s *Server) bulkDeleteSales(c *gin.Context) {
	var body struct {
		IDs []string `json:"ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	s.mutationStatus(c, s.dataset.DeleteSales(c.Request.Context(), body.IDs))
}

func (s *Server) exportSales(c *gin.Context) {
	filtered := sales.Filter(s.dataset.Sales(), salesQuery(c))

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="sales.csv"`)
	if err := sales.ExportCSV(c.Writer, filtered); err != nil {
		s.logger.Error("sales export failed", "error", err)
	}
}

func (s *Server) salesStats(c *gin.Context) {
	topN := 5
	if n, err := strconv.Atoi(c.Query("top")); err == nil && n > 0 {
		topN = n
	}
	c.JSON(http.StatusOK, sales.ComputeStats(s.dataset.Sales(), topN))
}

// unmatchedSales lists sales no catalog product claims, each with the closest
// product names for manual triage.
func (s *Server) unmatchedSales(c *gin.Context) {
	limit := 3
	if n, err := strconv.Atoi(c.Query("suggestions")); err == nil && n > 0 {
		limit = n
	}

	unmatched := s.dataset.UnmatchedSales(limit)
	c.JSON(http.StatusOK, gin.H{"unmatched": unmatched, "count": len(unmatched)})
}

func (s *Server) listProducts(c *gin.Context) {
	products := s.dataset.Products()
	c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products)})
}

type createProductRequest struct {
	Name         string  `json:"name" binding:"required"`
	Category     string  `json:"category" binding:"required"`
	Description  string  `json:"description"`
	Price        string  `json:"price"`
	InitialStock float64 `json:"initialStock"`
	MinStock     float64 `json:"minStock"`
}

func (s *Server) createProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	price := decimal.Zero
	if req.Price != "" {
		parsed, err := decimal.NewFromString(req.Price)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unparseable price"})
			return
		}
		price = parsed.Round(2)
	}

	product := catalog.Product{
		Name:         req.Name,
		Category:     req.Category,
		Description:  req.Description,
		Price:        price,
		InitialStock: req.InitialStock,
		Stock:        req.InitialStock,
		MinStock:     req.MinStock,
	}
	s.mutationStatus(c, s.dataset.CreateProducts(c.Request.Context(), []catalog.Product{product}))
}

func (s *Server) updateProduct(c *gin.Context) {
	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil || len(fields) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	// Stock fields are derived by reconciliation, never set by hand.
	for _, derived := range []string{"id", "quantitySold", "stock"} {
		delete(fields, derived)
	}
	if len(fields) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no updatable fields"})
		return
	}

	s.mutationStatus(c, s.dataset.UpdateProduct(c.Request.Context(), c.Param("id"), fields))
}

func (s *Server) deleteProduct(c *gin.Context) {
	s.mutationStatus(c, s.dataset.DeleteProducts(c.Request.Context(), []string{c.Param("id")}))
}

func (s *Server) searchProducts(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
		return
	}

	limit := 10
	if n, err := strconv.Atoi(c.Query("limit")); err == nil && n > 0 {
		limit = n
	}

	hits, err := s.dataset.SearchProducts(query, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"hits": hits})
}

func (s *Server) stockAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"alerts": catalog.StockAlerts(s.dataset.Products())})
}

func (s *Server) reconcile(c *gin.Context) {
	result, err := s.dataset.Reconcile(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"products":       len(result.Products),
		"changed":        len(result.Deltas),
		"unmatchedSales": result.UnmatchedSales,
	})
}
