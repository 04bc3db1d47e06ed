package repoargs

type RepositoryName string

const (
	UserRepoName        RepositoryName = "user"
	OrderRepoName       RepositoryName = "order"
	ProductRepoName     RepositoryName = "product"
	TransactionRepoName RepositoryName = "transaction"
	CartRepoName        RepositoryName = "cart"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)
