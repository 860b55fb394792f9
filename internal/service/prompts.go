package service

import "fmt"

const (
	msgNoRoute           = "Ask either FAQs or product-related questions about this platform."
	msgClassificationErr = "Sorry, I can't process questions right now. Please try again later."
	msgFAQNoContext      = "I don't know. I couldn't find anything about that in our FAQs."
	msgNoSQL             = "Sorry, LLM is not able to generate a query for your question"
	msgSQLExecution      = "Sorry, there was a problem executing SQL query"
	msgNoProducts        = "Sorry, I couldn't find any products matching your question."
	msgResultTooLarge    = "Error: The query result is too large. Please refine your query (e.g., add a LIMIT clause) or try again later."
	msgQuestionTooLarge  = "Sorry, your question is too long for me to answer. Please narrow it down and try again."
	msgUnavailable       = "Sorry, the assistant is temporarily unavailable. Please try again in a moment."
)

func faqPrompt(query, context string) string {
	return fmt.Sprintf(`Given the following context and question, generate answer based on this context only.
If the answer is not found in the context, kindly state "I don't know". Don't try to make up an answer.

CONTEXT: %s

QUESTION: %s
`, context, query)
}

const sqlPrompt = `You are an expert in understanding the database schema and generating SQL queries for a natural language question asked
pertaining to the data you have. The schema is provided in the schema tags.
<schema>
table: product

fields:
product_link - string (hyperlink to product)
title - string (name of the product)
brand - string (brand of the product)
price - integer (price of the product in Indian Rupees)
discount - float (discount on the product. 10 percent discount is represented as 0.1, 20 percent as 0.2, and such.)
avg_rating - float (average rating of the product. Range 0-5, 5 is the highest.)
total_ratings - integer (total number of ratings for the product)

</schema>
Make sure whenever you try to search for the brand name, the name can be in any case.
So, make sure to use %LIKE% to find the brand in condition. Never use "ILIKE".
Create a single SQL query for the question provided.
The query should have all the fields in SELECT clause (i.e. SELECT *).
If the question does not specify a limit, add LIMIT 10 to prevent large result sets.
Just the SQL query is needed, nothing more. Always provide the SQL in between the <SQL></SQL> tags.`

const comprehensionPrompt = `You are an expert in understanding the context of the question and replying based on the data pertaining to the question provided. You will be provided with Question: and Data:. The data will be in the form of an array of records. Reply based on only the data provided as Data for answering the question asked as Question. Do not write anything like 'Based on the data' or any other technical words. Just a plain simple natural language response.
The Data would always be in context to the question asked. For example if the question is "What is the average rating?" and data is "4.3", then answer should be "The average rating for the product is 4.3". So make sure the response is curated with the question and data. Make sure to note the column names to have some context, if needed, for your response.
Always remember that the data field contains the answer of the question asked. All you need to do is to always reply in the following format when asked about a product:
Product title, price in Indian Rupees, discount, and rating, then product link. Take care that all the products are listed in list format, one line after the other. Not as a paragraph.
For example:
1. Campus Women Running Shoes: Rs. 1104 (35% off), Rating: 4.4 <link>
2. Campus Women Running Shoes: Rs. 1104 (35% off), Rating: 4.4 <link>
3. Campus Women Running Shoes: Rs. 1104 (35% off), Rating: 4.4 <link>
`

func comprehensionInput(question, data string) string {
	return fmt.Sprintf("QUESTION: %s. DATA: %s", question, data)
}
