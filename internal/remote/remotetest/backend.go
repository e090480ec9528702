// Package remotetest provides an in-process order backend for tests.
package remotetest

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"tienda-b2b/internal/catalog"
	"tienda-b2b/internal/domain"
)

// Backend mimics the order API: it creates draft orders, attaches lines and
// recomputes the total on every attach.
type Backend struct {
	mu       sync.Mutex
	orders   map[int64]*order
	nextID   int64
	variants map[int64]domain.Variant

	// FailCreate makes order creation answer 500.
	FailCreate bool
	// CreateBody, when set, replaces the create response body.
	CreateBody string
	// FailAttachCalls lists 1-based attach call numbers that answer 500.
	FailAttachCalls map[int]bool
	// FailTransitions makes confirm/cancel answer 500.
	FailTransitions bool
	// ListBody and ListStatus override the list response.
	ListBody   string
	ListStatus int
	// LegacyFields answers with montoTotal/detalles instead of total/items.
	LegacyFields bool

	attachCalls int
	calls       []string
	inflight    atomic.Int32
	maxInflight atomic.Int32
	// AttachDelay slows each attach so overlapping calls would be observable.
	AttachDelay time.Duration
}

type order struct {
	ID        int64
	ClienteID int64
	Fecha     time.Time
	Estado    string
	Nombre    string
	Email     string
	Lines     []line
}

type line struct {
	ID        int64
	VariantID int64
	Cantidad  int
	Precio    decimal.Decimal
}

// NewBackend serves the demo catalog prices.
func NewBackend() *Backend {
	b := &Backend{
		orders:          make(map[int64]*order),
		nextID:          100,
		variants:        make(map[int64]domain.Variant),
		FailAttachCalls: make(map[int]bool),
	}
	for _, p := range catalog.DemoCatalog(domain.DefaultCurrency) {
		for _, v := range p.Variants {
			b.variants[v.ID] = v
		}
	}
	return b
}

// Start serves the backend until the test ends.
func (b *Backend) Start(t interface{ Cleanup(func()) }) *httptest.Server {
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func (b *Backend) Handler() http.Handler {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		b.mu.Lock()
		b.calls = append(b.calls, c.Request.Method+" "+c.Request.URL.Path)
		b.mu.Unlock()
		c.Next()
	})
	r.POST("/api/pedidos/crear", b.create)
	r.POST("/api/pedidos/:id/items", b.attach)
	r.POST("/api/pedidos/:id/confirmar", b.transition("CONFIRMADO"))
	r.POST("/api/pedidos/:id/cancelar", b.transition("CANCELADO"))
	r.GET("/api/pedidos", b.list)
	return r
}

// Calls returns "METHOD path" for every request received.
func (b *Backend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

// MaxConcurrentAttaches is the highest number of attach requests seen in flight at once.
func (b *Backend) MaxConcurrentAttaches() int {
	return int(b.maxInflight.Load())
}

// Order returns the stored order as the API would render it.
func (b *Backend) Order(id int64) (gin.H, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[id]
	if !ok {
		return nil, false
	}
	return b.render(o), true
}

func (b *Backend) create(c *gin.Context) {
	if b.FailCreate {
		c.String(http.StatusInternalServerError, "<!DOCTYPE html><html><body>Whitelabel Error Page</body></html>")
		return
	}
	if b.CreateBody != "" {
		c.Data(http.StatusOK, "application/json", []byte(b.CreateBody))
		return
	}
	var req struct {
		ClienteID int64 `json:"clienteId"`
		Usuario   *struct {
			NombreRazonSocial string `json:"nombreRazonSocial"`
			Email             string `json:"email"`
		} `json:"usuario"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	o := &order{ID: b.nextID, ClienteID: req.ClienteID, Fecha: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), Estado: "BORRADOR"}
	if req.Usuario != nil {
		o.Nombre = req.Usuario.NombreRazonSocial
		o.Email = req.Usuario.Email
	}
	b.orders[o.ID] = o
	c.JSON(http.StatusOK, b.render(o))
}

func (b *Backend) attach(c *gin.Context) {
	now := b.inflight.Add(1)
	defer b.inflight.Add(-1)
	for {
		prev := b.maxInflight.Load()
		if now <= prev || b.maxInflight.CompareAndSwap(prev, now) {
			break
		}
	}
	if b.AttachDelay > 0 {
		time.Sleep(b.AttachDelay)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.attachCalls++
	if b.FailAttachCalls[b.attachCalls] {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "deadlock detected"})
		return
	}

	o, ok := b.lookup(c)
	if !ok {
		return
	}
	variantID, _ := strconv.ParseInt(c.Query("varianteId"), 10, 64)
	qty, _ := strconv.Atoi(c.Query("cantidad"))
	v, ok := b.variants[variantID]
	if !ok || qty <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "variante inválida"})
		return
	}
	o.Lines = append(o.Lines, line{ID: int64(len(o.Lines) + 1), VariantID: v.ID, Cantidad: qty, Precio: v.Price.Amount})
	c.JSON(http.StatusOK, b.render(o))
}

func (b *Backend) transition(estado string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if b.FailTransitions {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "transition failed"})
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		o, ok := b.lookup(c)
		if !ok {
			return
		}
		o.Estado = estado
		c.JSON(http.StatusOK, b.render(o))
	}
}

func (b *Backend) list(c *gin.Context) {
	if b.ListBody != "" || b.ListStatus != 0 {
		status := b.ListStatus
		if status == 0 {
			status = http.StatusOK
		}
		c.Data(status, "text/plain", []byte(b.ListBody))
		return
	}
	clienteID, _ := strconv.ParseInt(c.Query("clienteId"), 10, 64)

	b.mu.Lock()
	defer b.mu.Unlock()
	out := []gin.H{}
	for id := int64(101); id <= b.nextID; id++ {
		if o, ok := b.orders[id]; ok && o.ClienteID == clienteID {
			out = append(out, b.render(o))
		}
	}
	c.JSON(http.StatusOK, out)
}

func (b *Backend) lookup(c *gin.Context) (*order, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id inválido"})
		return nil, false
	}
	o, ok := b.orders[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "pedido no encontrado"})
		return nil, false
	}
	return o, true
}

func (b *Backend) render(o *order) gin.H {
	total := decimal.Zero
	var items, detalles []gin.H
	for _, l := range o.Lines {
		sub := l.Precio.Mul(decimal.NewFromInt(int64(l.Cantidad)))
		total = total.Add(sub)
		v := b.variants[l.VariantID]
		items = append(items, gin.H{
			"id":             l.ID,
			"varianteId":     l.VariantID,
			"cantidad":       l.Cantidad,
			"precioUnitario": l.Precio,
			"sku":            v.SKU,
			"productoNombre": v.ProductName,
		})
		detalles = append(detalles, gin.H{
			"id":             l.ID,
			"cantidad":       l.Cantidad,
			"precioUnitario": l.Precio,
			"variante": gin.H{
				"id":  v.ID,
				"sku": v.SKU,
				"producto": gin.H{
					"nombre": v.ProductName,
				},
			},
		})
	}

	out := gin.H{
		"id":        o.ID,
		"clienteId": o.ClienteID,
		"fecha":     o.Fecha.Format("2006-01-02T15:04:05"),
		"estado":    o.Estado,
	}
	if o.Nombre != "" || o.Email != "" {
		out["usuario"] = gin.H{"nombreRazonSocial": o.Nombre, "email": o.Email}
	}
	if b.LegacyFields {
		out["montoTotal"] = total
		out["detalles"] = nonNil(detalles)
	} else {
		out["total"] = total
		out["items"] = nonNil(items)
	}
	return out
}

func nonNil(in []gin.H) []gin.H {
	if in == nil {
		return []gin.H{}
	}
	return in
}
