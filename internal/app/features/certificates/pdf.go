// internal/app/features/certificates/pdf.go
package certificates

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/dalemusser/bloodlink/internal/domain/models"
	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"
)

// renderPDF draws a one-page landscape certificate for cert with a QR code
// pointing at verifyURL.
func renderPDF(out io.Writer, cert models.Certificate, verifyURL string) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Blood Donation Certificate "+cert.CertificateID, true)
	pdf.SetCreator("BloodLink", true)
	pdf.SetCreationDate(cert.IssuedAt)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	// Core fonts are cp1252; translate names that arrive as UTF-8.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageW, pageH := pdf.GetPageSize()

	pdf.SetDrawColor(178, 34, 34)
	pdf.SetLineWidth(2)
	pdf.Rect(10, 10, pageW-20, pageH-20, "D")
	pdf.SetLineWidth(0.5)
	pdf.Rect(14, 14, pageW-28, pageH-28, "D")

	center := func(y, size float64, style, text string) {
		pdf.SetFont("Helvetica", style, size)
		pdf.SetXY(20, y)
		pdf.CellFormat(pageW-40, size*0.5, tr(text), "", 0, "C", false, 0, "")
	}

	pdf.SetTextColor(178, 34, 34)
	center(32, 30, "B", "Certificate of Blood Donation")
	pdf.SetTextColor(40, 40, 40)
	center(55, 14, "", "This certificate is proudly presented to")
	center(70, 26, "B", cert.DonorName)

	line := "in recognition of " + donationsPhrase(cert.TotalDonations) + " of blood"
	if cert.BloodGroup != "" {
		line += " (" + cert.BloodGroup + ")"
	}
	center(90, 14, "", line)
	center(100, 14, "", "Your generosity helps save lives.")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(24, pageH-40)
	pdf.CellFormat(150, 6, "Certificate ID: "+cert.CertificateID, "", 2, "L", false, 0, "")
	pdf.CellFormat(150, 6, "Issued: "+cert.IssuedAt.Format("2 January 2006"), "", 2, "L", false, 0, "")
	pdf.CellFormat(150, 6, "Scan the code or follow this line to verify.", "", 0, "L", false, 0, verifyURL)

	png, err := qrcode.Encode(verifyURL, qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("encode verification qr: %w", err)
	}
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("verify-qr", opts, bytes.NewReader(png))
	pdf.ImageOptions("verify-qr", pageW-64, pageH-64, 40, 40, false, opts, 0, verifyURL)

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("draw certificate: %w", err)
	}
	return pdf.Output(out)
}

func donationsPhrase(n int) string {
	if n == 1 {
		return "1 donation"
	}
	return strconv.Itoa(n) + " donations"
}
