package parse

// WalkSceneStatements calls visit for each statement, including the statements nested in
// if, choice and while bodies, in source order.
func WalkSceneStatements(statements []SceneStatement, visit func(stmt SceneStatement)) {
	for _, stmt := range statements {
		visit(stmt)

		switch stmt := stmt.(type) {
		case *IfStatement:
			for _, clause := range stmt.Clauses {
				WalkSceneStatements(clause.Statements, visit)
			}
		case *ChoiceStatement:
			for _, choice := range stmt.Choices {
				WalkSceneStatements(choice.Statements, visit)
			}
		case *WhileLoop:
			WalkSceneStatements(stmt.Statements, visit)
		}
	}
}

// WalkScenes calls visit for each scene of the block, namespaces and nested blocks are traversed.
// The namespace path of the scene is passed to visit, outermost first.
func WalkScenes(block *Block, visit func(namespaces []string, scene *Scene)) {
	walkScenes(block, nil, visit)
}

func walkScenes(block *Block, namespaces []string, visit func(namespaces []string, scene *Scene)) {
	if block == nil {
		return
	}
	for _, stmt := range block.Statements {
		switch stmt := stmt.(type) {
		case *Block:
			walkScenes(stmt, namespaces, visit)
		case *Namespace:
			walkScenes(stmt.Block, append(namespaces[:len(namespaces):len(namespaces)], stmt.Name), visit)
		case *Scene:
			visit(namespaces, stmt)
		}
	}
}
