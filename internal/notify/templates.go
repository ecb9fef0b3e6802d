package notify

const customerMessageTmpl = `Thank you for your order from {{.Brand.BusinessName}}!

Order: {{.OrderNumber}} ({{.OrderID}})
Customer: {{.CustomerName}}
{{range .Items}}{{.Index}}. {{.Name}} x{{.Quantity}} @ {{.UnitPrice}} = {{.LineTotal}}
{{end}}Total: {{.Total}}
Payment: {{.Payment}}
{{if .Pickup}}
Pickup from: {{or .Brand.StoreAddress .Brand.BusinessName}}{{with .Brand.StoreHours}}
Hours: {{.}}{{end}}
{{else}}
Deliver to: {{.Address}}{{with .Landmark}}
Landmark: {{.}}{{end}}{{with .Instructions}}
Instructions: {{.}}{{end}}
{{end}}{{with .EstimatedDelivery}}ETA: {{.}}
{{end}}
We will contact you within {{.Brand.ContactWindow}}.
{{with .Brand.UPIID}}
UPI Payment Details:
UPI ID: {{.}}
To pay via UPI, send payment to the UPI ID above and share the screenshot with us.
{{end}}{{with .Brand.SupportNumber}}
Support: {{.}}
{{end}}`

const businessMessageTmpl = `NEW {{.ServiceUpper}} ORDER RECEIVED!

Order: {{.OrderNumber}} ({{.OrderID}})
Customer: {{.CustomerName}}
Mobile: {{.Mobile}}{{with .Email}}
Email: {{.}}{{end}}
Total: {{.Total}}
Payment: {{.Payment}}

Items Ordered:
{{range .Items}}{{.Index}}. {{.Name}} - {{.Quantity}}x @ {{.UnitPrice}} - {{.LineTotal}}
{{end}}{{if .Pickup}}
Self Pickup{{with .Brand.StoreAddress}}
Pickup from: {{.}}{{end}}{{with .Brand.StoreHours}}
Hours: {{.}}{{end}}
{{else}}
Delivery Address:
{{.Address}}{{with .Landmark}}
Landmark: {{.}}{{end}}{{with .Instructions}}
Instructions: {{.}}{{end}}
{{end}}{{with .Brand.AdminURL}}
View order details: {{.}}
{{end}}`

const customerEmailTmpl = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h1>{{.Brand.BusinessName}}</h1>
  <h2>Order Confirmed!</h2>
  <p>Hi {{.CustomerName}},</p>
  <p>Thank you for your order! We will contact you within {{.Brand.ContactWindow}}.</p>

  <h3>Order Details</h3>
  <p><strong>Order Number:</strong> {{.OrderNumber}}</p>
  <p><strong>Order ID:</strong> {{.OrderID}}</p>
  <p><strong>Order Date:</strong> {{.OrderDate}}</p>
  <p><strong>Payment Method:</strong> {{.Payment}}</p>

  <table cellpadding="6" style="border-collapse: collapse;">
    <tr><th align="left">Item</th><th>Qty</th><th align="right">Price</th><th align="right">Total</th></tr>
    {{range .Items}}<tr><td>{{.Name}}{{with .WeightLabel}} ({{.}}){{end}}</td><td align="center">{{.Quantity}}</td><td align="right">{{.UnitPrice}}</td><td align="right">{{.LineTotal}}</td></tr>
    {{end}}
  </table>
  <p>Subtotal: {{.Subtotal}}<br>Delivery fee: {{.DeliveryFee}}<br>Tax: {{.Tax}}</p>
  <p style="font-size: 18px;"><strong>Total Amount: {{.Total}}</strong></p>
{{with .Brand.UPIID}}
  <div style="background: #fef3c7; padding: 16px;">
    <h4>Prefer Online Payment?</h4>
    <p><strong>UPI ID: {{.}}</strong></p>
    <p>Send payment to this UPI ID and share the payment screenshot with us.</p>
  </div>
{{end}}
{{if .Pickup}}
  <h3>Pickup Information</h3>
  <p><strong>Name:</strong> {{.CustomerName}}</p>
  <p><strong>Mobile:</strong> {{.Mobile}}</p>
  {{with .Brand.StoreAddress}}<p><strong>Pickup from:</strong> {{.}}</p>{{end}}
  {{with .Brand.StoreHours}}<p><strong>Store hours:</strong> {{.}}</p>{{end}}
{{else}}
  <h3>Delivery Information</h3>
  <p><strong>Name:</strong> {{.CustomerName}}</p>
  <p><strong>Mobile:</strong> {{.Mobile}}</p>
  <p><strong>Address:</strong> {{.Address}}</p>
  {{with .Landmark}}<p><strong>Landmark:</strong> {{.}}</p>{{end}}
  {{with .Instructions}}<p><strong>Instructions:</strong> {{.}}</p>{{end}}
{{end}}
  {{with .EstimatedDelivery}}<p><strong>Estimated:</strong> {{.}}</p>{{end}}
  <p>Thank you for choosing {{.Brand.BusinessName}}!</p>
  {{with .Brand.SupportNumber}}<p>Need help? Contact us at {{.}}</p>{{end}}
</body>
</html>`

const businessEmailTmpl = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h1>NEW {{.ServiceUpper}} ORDER</h1>
  <h2>{{.Brand.BusinessName}}</h2>

  <h3>Customer Information</h3>
  <p><strong>Order Number:</strong> {{.OrderNumber}}</p>
  <p><strong>Order ID:</strong> {{.OrderID}}</p>
  <p><strong>Customer Name:</strong> {{.CustomerName}}</p>
  <p><strong>Mobile:</strong> {{.Mobile}}</p>
  <p><strong>Email:</strong> {{or .Email "Not provided"}}</p>
  <p><strong>Order Date:</strong> {{.OrderDate}}</p>
  <p><strong>Payment Method:</strong> {{.Payment}}</p>
  <p><strong>Service Type:</strong> {{.Service}}</p>

  <h3>Order Items</h3>
  <table cellpadding="6" style="border-collapse: collapse;">
    <tr><th align="left">Item</th><th>Qty</th><th align="right">Price</th><th align="right">Total</th></tr>
    {{range .Items}}<tr><td>{{.Name}}{{with .WeightLabel}} ({{.}}){{end}}</td><td align="center">{{.Quantity}}</td><td align="right">{{.UnitPrice}}</td><td align="right">{{.LineTotal}}</td></tr>
    {{end}}
  </table>
  <p style="font-size: 18px;"><strong>Total Amount: {{.Total}}</strong></p>
{{if .Pickup}}
  <h3>Self Pickup</h3>
  {{with .Brand.StoreAddress}}<p><strong>Pickup from:</strong> {{.}}</p>{{end}}
  {{with .Brand.StoreHours}}<p><strong>Store hours:</strong> {{.}}</p>{{end}}
{{else}}
  <h3>Delivery Address</h3>
  <p>{{.Address}}</p>
  {{with .Landmark}}<p><strong>Landmark:</strong> {{.}}</p>{{end}}
  {{with .Instructions}}<p><strong>Delivery Instructions:</strong> {{.}}</p>{{end}}
{{end}}
{{with .Brand.AdminURL}}
  <p><a href="{{.}}">View in Admin Dashboard</a></p>
{{end}}
</body>
</html>`
