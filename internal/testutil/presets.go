package testutil

// StandardDoc is a conceptual.yml with one domain and one concept.
const StandardDoc = `domains:
  party:
    name: Party
    owner: party-team
concepts:
  customer:
    name: Customer
    domain: party
    owner: crm-team
    definition: A person or organization that buys from us.
`

// StandardSchema is where WithStandardModels writes its models.
const StandardSchema = "models/marts/schema.yml"

// WithStandardModels adds dim_customer, mapped to customer, and the orphan
// stg_misc under models/marts.
func (p *Project) WithStandardModels() *Project {
	return p.
		WithModel(StandardSchema, "dim_customer", Concept("customer")).
		WithModel(StandardSchema, "stg_misc", Description("Miscellaneous staging rows."))
}

// WithStandardProject adds dbt_project.yml, doc as conceptual.yml (skipped
// when empty) and the standard models.
func (p *Project) WithStandardProject(doc string) *Project {
	p.WithDbtProject("shop").WithStandardModels()
	if doc != "" {
		p.WithConceptual(doc)
	}
	return p
}
