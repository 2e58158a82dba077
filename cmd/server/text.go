package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/Simplici0/cotizaciones/internal/quote"
)

const (
	copFormat = "#.###,"
	usdFormat = "#,###.##"
)

func formatCOP(v float64) string {
	return "$" + humanize.FormatFloat(copFormat, v) + " COP"
}

func formatUSD(v float64) string {
	return "US$" + humanize.FormatFloat(usdFormat, v)
}

func (s *server) handleQuoteText(w http.ResponseWriter, r *http.Request) {
	id, err := quoteIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q, err := s.quotes.Get(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(quoteText(q)))
}

// quoteText renders a quote as a plain-text summary grouped by item.
func quoteText(q *quote.Quote) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Cotización %s\n", q.CotizacionID)
	fmt.Fprintf(&b, "Cliente: %s\n", q.ClienteName)
	fmt.Fprintf(&b, "Fecha: %s\n", q.Date)
	fmt.Fprintf(&b, "Estado: %s\n", q.Status)
	fmt.Fprintf(&b, "TRM: %s\n", formatCOP(q.TRMGlobal))
	if q.VendorName != "" {
		fmt.Fprintf(&b, "Vendedor: %s\n", q.VendorName)
	}

	for i, g := range q.Groups() {
		name := g.Item.Name
		if name == "" {
			name = "Producto sin nombre"
		}
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, name)
		if g.Item.Description != "" {
			fmt.Fprintf(&b, "   %s\n", g.Item.Description)
		}
		for j, opt := range g.Options {
			label := strings.TrimSpace(strings.Join([]string{opt.Marca, opt.Referencia}, " "))
			if label == "" {
				label = "Opción"
			}
			fmt.Fprintf(&b, "   %c) %s x%d  costo %s  PVP %s\n",
				'a'+rune(j%26), label, opt.Cantidad, formatUSD(opt.CostoUSD), formatCOP(opt.PvpTotal))
		}
		if comment, ok := q.ItemComments[g.Item.ID]; ok {
			fmt.Fprintf(&b, "   Comentario: %s\n", comment)
		}
	}

	fmt.Fprintf(&b, "\nTotal: %s\n", formatCOP(q.TotalGeneral))
	switch q.Status {
	case quote.StatusApproved:
		fmt.Fprintf(&b, "Aprobada por %s el %s\n", q.ApprovedBy, q.ApprovalDateFormatted)
	case quote.StatusRevisionRequested:
		fmt.Fprintf(&b, "Revisión solicitada por %s el %s\n", q.RevisedBy, q.RevisionDateFormatted)
	case quote.StatusDenied:
		fmt.Fprintf(&b, "Rechazada por %s el %s\n", q.DeniedBy, q.DeniedDateFormatted)
	}

	return b.String()
}
