package scanning

// systemPrompt is sent as the system message by chat-style providers.
const systemPrompt = "You are a helpful assistant that extracts data from documents to JSON."

// resultShape is the JSON object every provider is asked to return.
const resultShape = `{
  "document_number": "номер накладной",
  "document_date": "YYYY-MM-DD",
  "supplier": "наименование поставщика",
  "items": [
    {"article": "артикул", "name": "наименование товара", "quantity": 1.0, "unit": "шт"}
  ]
}`

// textPrompt precedes the document text in text extraction requests.
const textPrompt = `Ты разбираешь товарно-транспортную накладную (ТТН). Извлеки из текста документа данные и верни ТОЛЬКО JSON такого вида:
` + resultShape + `

Правила:
1. ИНН, КПП, адреса и банковские реквизиты не являются товарами; используй их, только если они относятся к поставщику.
2. Поставщик указан в графе "Грузоотправитель" или "Поставщик".
3. Товары перечислены в табличной части документа.
4. Если у товара нет артикула, оставь пустую строку.
5. Количество указывай числом.
6. Дату приводи к виду YYYY-MM-DD.
7. Если поле не найдено, используй null.

Текст документа:
`

// visionPrompt accompanies the page image in vision extraction requests.
const visionPrompt = `Это изображение товарно-транспортной накладной (ТТН). Прочитай документ и верни ТОЛЬКО JSON такого вида:
` + resultShape + `

Рукописные пометки не учитывай, кроме исправленного количества. Если артикула нет, оставь пустую строку. Количество указывай числом, дату в виде YYYY-MM-DD. Если поле не найдено, используй null.`
