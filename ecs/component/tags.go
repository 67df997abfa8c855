package component

type CompanionTag struct{}

var CompanionTagComponent = NewComponent[CompanionTag]()

// ViewerTag marks the entity whose Transform is the viewer (camera/head) pose.
type ViewerTag struct{}

var ViewerTagComponent = NewComponent[ViewerTag]()
