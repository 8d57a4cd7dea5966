package adapter

// TraverseObject applies visit to every own enumerable property of obj, in
// order, collecting the results. The first visitor error stops the traversal
// and is returned unchanged.
func TraverseObject[R any](realm Realm, obj Value, visit func(key string, v Value) (R, error)) ([]R, error) {
	var out []R
	err := realm.ObjectTraverse(obj, func(key string, v Value) error {
		r, err := visit(key, v)
		if err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TraverseArray applies visit to every element of arr, in ascending index
// order, collecting the results. The first visitor error stops the traversal
// and is returned unchanged.
func TraverseArray[R any](realm Realm, arr Value, visit func(index uint32, v Value) (R, error)) ([]R, error) {
	var out []R
	err := realm.ArrayTraverse(arr, func(index uint32, v Value) error {
		r, err := visit(index, v)
		if err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
