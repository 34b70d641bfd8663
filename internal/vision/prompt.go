package vision

// SystemPrompt frames the model as a point-of-sale document parser.
const SystemPrompt = "You are a document parser for a retail point-of-sale back office. You read photographed invoices, receipts, shift reports, lottery reports and identity documents and return their contents as a single JSON object. Accuracy matters more than completeness: never guess a value that is not printed on the document."

// UserPrompt describes the JSON object the model must return.
const UserPrompt = `Analyze this document image. It is most likely an Invoice, Receipt, Shift Report, Lottery Report or an identity document (driver license or state ID).

Return ONE JSON object with this shape. Omit nothing; use null for anything not printed.
{
  "doc_type": "Invoice" | "Receipt" | "Shift Report" | "Lottery Report" | "ID" | "Other",
  "vendor": {"name": string, "phone": string, "address": string, "website": string, "vendor_id": string},
  "invoice_details": {"number": string, "date": "YYYY-MM-DD", "due_date": "YYYY-MM-DD", "po_number": string, "terms": string},
  "financials": {"total_amount": number, "subtotal": number, "tax": number, "shipping": number, "credits": number, "balance_due": number, "currency": string},
  "line_items": [
    {"description": string, "brand": string, "upc": string, "sku": string, "quantity": number,
     "unit_of_measure": string, "pack_size": string, "unit_price": number, "total_price": number}
  ],
  "shift_report_details": {"date": "YYYY-MM-DD", "total_sales": number, "fuel_sales": number, "merch_sales": number, "cash_drop": number},
  "identity": {"name": string, "address": string, "license_number": string, "dob": "YYYY-MM-DD",
               "expiration_date": "YYYY-MM-DD", "issue_date": "YYYY-MM-DD", "sex": "M" | "F", "height": string}
}

Rules:
1. Shift reports and night audits: fill shift_report_details.
2. Invoices from distributors: list EVERY line item, in printed order.
3. For each line item read the UPC (12-13 digits), SKU, unit of measure (EA, CS, BX, LB, OZ, GAL ...) and pack size (12-pack, 6ct, 24oz).
4. Write all dates as YYYY-MM-DD.
5. Credits are negative numbers.
6. Identity documents: fill identity only; leave the financial sections null.

Examples:
- "Coca-Cola 12oz 24pk" -> {"description": "Coca-Cola 12oz 24pk", "brand": "Coca-Cola", "pack_size": "24pk", "unit_of_measure": "CS"}
- "100234567 PEPSI 2L 8PK" -> {"sku": "100234567", "description": "PEPSI 2L 8PK", "brand": "PEPSI", "pack_size": "8pk"}`
